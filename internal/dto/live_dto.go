package dto

// Live frame types pushed by the server.
const (
	LiveFrameStatus = "daily_status"
	LiveFrameEdit   = "edit"
	LiveFrameError  = "error"
	LiveFrameSaved  = "edit_saved"
	LiveFrameClosed = "edit_closed"
)

// Live commands sent by clients.
const (
	LiveCommandSelectDate = "select_date"
	LiveCommandEditBegin  = "edit_begin"
	LiveCommandEditCancel = "edit_cancel"
	LiveCommandEditSave   = "edit_save"
)

// LiveFrame is a server-to-client websocket message.
type LiveFrame struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// LiveCommand is a client-to-server websocket message.
type LiveCommand struct {
	Type            string `json:"type" validate:"required,oneof=select_date edit_begin edit_cancel edit_save"`
	Date            string `json:"date,omitempty"`
	RecordID        string `json:"record_id,omitempty"`
	DismissalMethod string `json:"dismissal_method,omitempty"`
	Hour            int    `json:"hour,omitempty"`
	Minute          *int   `json:"minute,omitempty"`
}
