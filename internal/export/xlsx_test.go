package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

func TestWriteXLSXWritesHeaderAndRows(t *testing.T) {
	rows := []reconcile.ExportRow{
		{Date: "2025. 12. 22.", Time: "오후 02:30", Grade: "3학년", Name: "김온유", Method: "도보", Message: "조심히 가요"},
		{Date: "2025. 12. 22.", Time: "오후 01:00", Grade: "1학년", Name: "김건우", Method: "통학차", Message: "내일 봐요"},
	}

	content, err := WriteXLSX(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SheetName}, f.GetSheetList())

	read, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, read, 3)
	require.Equal(t, Header, read[0])
	require.Equal(t, []string{"2025. 12. 22.", "오후 02:30", "3학년", "김온유", "도보", "조심히 가요"}, read[1])
	require.Equal(t, "김건우", read[2][3])
}

func TestWriteXLSXEmptyRange(t *testing.T) {
	content, err := WriteXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	read, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, read, 1)
}
