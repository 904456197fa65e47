package lunch

import (
	"context"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// VerifiedSourceTitle labels menus confirmed by staff from the printed table.
const VerifiedSourceTitle = "사용자 제공 식단표 이미지 (확인됨)"

// DefaultVerifiedMenus are the hand-confirmed menus for the fourth week of December 2025.
var DefaultVerifiedMenus = map[string]string{
	"2025-12-22": "• 현미차조밥\n• 동지팥죽(13)\n• 쇠고기무국(5.6.9.16)\n• 포항닭보쌈/파채/청양마요소스(1.5.6.13.15)\n• 오징어시금치초무침(5.6.13.17)\n• 파래김/양념장(5.6.13)\n• 배추김치(9.13)\n• 황금향\n(713.6 Kcal)",
	"2025-12-23": "• 현미귀리쌀밥\n• 조갯살시금치된장국(5.6.9.18)\n• 세발나물무침\n• 모자반콩나물무침(5)\n• 옥수수김치전(1.2.5.6.9.13)\n• 오리훈제/무쌈\n• 배추김치(9.13)\n• 슈크림붕어빵(1.2.5.6)\n(982.6 Kcal)",
	"2025-12-24": "• 나시고랭(공통19)(1.5.6.9.10.13.17.18)\n• 콩가루배추국(5.6.9)\n• 리코타치즈샐러드/블루베리드레싱(1.2.5.12.13)\n• 오븐치즈스파게티(1.2.5.6.10.12.13.16)\n• 돈마호크/소스(1.2.5.6.10.12.13.16.18)\n• 배추김치(9.13)\n• 요구르트(2)\n• 크리스마스케익(1.2.5.6)\n(1109.0 Kcal)",
	"2025-12-26": "• 현미수수밥*\n• 사골황태국(5.16)\n• 계란장조림(1.5.6.13)\n• 미역줄기팽이버섯볶음\n• 배추전/양념장(5.6)\n• 돼지목살고추장구이(5.6.10)\n• 배추김치(9)\n• 친환경야채쌈(자율)(5.6)\n(627.2 Kcal)",
}

// VerifiedTable answers from literal menus keyed by YYYY-MM-DD.
type VerifiedTable struct {
	menus  map[string]string
	source models.Source
}

// NewVerifiedTable builds the table. menuURL is cited as the source of every entry.
func NewVerifiedTable(menus map[string]string, menuURL string) *VerifiedTable {
	copied := make(map[string]string, len(menus))
	for key, text := range menus {
		copied[key] = text
	}
	return &VerifiedTable{
		menus:  copied,
		source: models.Source{Title: VerifiedSourceTitle, URI: menuURL},
	}
}

func (t *VerifiedTable) Tier() Tier { return TierVerified }

func (t *VerifiedTable) Lookup(_ context.Context, req Request) (models.LunchData, bool, error) {
	text, ok := t.menus[req.Key]
	if !ok {
		return models.LunchData{}, false, nil
	}
	return models.LunchData{MenuText: text, Sources: []models.Source{t.source}}, true, nil
}
