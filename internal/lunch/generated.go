package lunch

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/pkg/ai"
)

// Text used when the generator returns nothing. It carries NotFoundMarker so it is never cached.
const emptyMenuText = "정보를 가져올 수 없습니다."

// DefaultSourceTitle labels the school's menu board when no citation was returned.
func DefaultSourceTitle(schoolName string) string {
	return strings.TrimSpace(schoolName + " 급식 메뉴 게시판")
}

var weekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// Generator is the live search tier.
type Generator struct {
	searcher   ai.Searcher
	schoolName string
	menuURL    string
	policy     *bluemonday.Policy
}

// NewGenerator builds the search tier for the named school.
func NewGenerator(searcher ai.Searcher, schoolName, menuURL string) *Generator {
	return &Generator{
		searcher:   searcher,
		schoolName: schoolName,
		menuURL:    menuURL,
		policy:     bluemonday.StrictPolicy(),
	}
}

func (g *Generator) Tier() Tier { return TierGenerated }

func (g *Generator) Lookup(ctx context.Context, req Request) (models.LunchData, bool, error) {
	if g.searcher == nil {
		return models.LunchData{}, false, fmt.Errorf("search generator not configured")
	}

	result, err := g.searcher.Search(ctx, g.Prompt(req.Date))
	if err != nil {
		return models.LunchData{}, false, err
	}

	text := g.clean(result.Text)
	if text == "" {
		text = emptyMenuText
	}

	for i := range result.Citations {
		result.Citations[i].Title = g.clean(result.Citations[i].Title)
	}
	sources := dedupeSources(result.Citations)
	if len(sources) == 0 {
		sources = append(sources, models.Source{Title: DefaultSourceTitle(g.schoolName), URI: g.menuURL})
	}

	return models.LunchData{MenuText: text, Sources: sources}, true, nil
}

// clean strips markup from model output and keeps plain text intact.
func (g *Generator) clean(raw string) string {
	return strings.TrimSpace(html.UnescapeString(g.policy.Sanitize(raw)))
}

// Prompt asks for the menu of day at the configured school.
func (g *Generator) Prompt(day time.Time) string {
	formatted := FormatKoreanDate(day)
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("**%s**의 **%s** 급식 메뉴를 찾아줘.\n\n", g.schoolName, formatted))
	builder.WriteString(fmt.Sprintf("**필수 참조 URL:** %s\n\n", g.menuURL))
	builder.WriteString("**검색 가이드:**\n")
	builder.WriteString("- 위 URL은 주간 식단표 페이지야. 해당 날짜가 현재 주에 없다면 학교 식단표 공지사항이나 급식 게시판의 다른 페이지를 추적해줘.\n")
	builder.WriteString("- 식품안전나라(FoodSafetyKorea) 사이트 내의 학교 데이터도 함께 대조해줘.\n\n")
	builder.WriteString("**응답 형식:**\n")
	builder.WriteString("- 식단 메뉴(요리명)를 • 기호와 함께 나열.\n")
	builder.WriteString("- 칼로리와 알레르기 정보를 포함.\n")
	builder.WriteString("- 정보를 찾을 수 없는 경우에만 \"등록된 정보가 없습니다\"라고 답변.\n")
	return builder.String()
}

// FormatKoreanDate renders day as "2025년 12월 22일 (월요일)".
func FormatKoreanDate(day time.Time) string {
	return fmt.Sprintf("%d년 %d월 %d일 (%s요일)", day.Year(), int(day.Month()), day.Day(), weekdays[day.Weekday()])
}

func dedupeSources(citations []ai.Citation) []models.Source {
	seen := make(map[string]struct{}, len(citations))
	sources := make([]models.Source, 0, len(citations))
	for _, citation := range citations {
		if citation.URI == "" || citation.Title == "" {
			continue
		}
		if _, dup := seen[citation.URI]; dup {
			continue
		}
		seen[citation.URI] = struct{}{}
		sources = append(sources, models.Source{Title: citation.Title, URI: citation.URI})
	}
	return sources
}
