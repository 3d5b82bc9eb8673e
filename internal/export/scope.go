package export

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Veraticus/merchctl/internal/model"
)

const allScope = "ALL"

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// SafeFilePart replaces characters that are not allowed in file names with "-".
func SafeFilePart(s string) string {
	return unsafeFileChars.ReplaceAllString(s, "-")
}

// Scope describes what an export covers. Its filename is deterministic: the kind,
// then each part, then the date window, joined with underscores.
type Scope struct {
	Kind  string
	Parts []string
	Start string
	End   string
	// Ext defaults to ".csv".
	Ext string
}

// Filename renders the scope as a sanitized file name.
func (s Scope) Filename() string {
	segments := make([]string, 0, len(s.Parts)+2)
	segments = append(segments, SafeFilePart(s.Kind))
	for _, p := range s.Parts {
		segments = append(segments, SafeFilePart(p))
	}
	if s.Start != "" || s.End != "" {
		segments = append(segments, SafeFilePart(s.Start)+"_to_"+SafeFilePart(s.End))
	}

	ext := s.Ext
	if ext == "" {
		ext = ".csv"
	}
	return strings.Join(segments, "_") + ext
}

// WithExt returns a copy of the scope with a different extension.
func (s Scope) WithExt(ext string) Scope {
	s.Ext = ext
	return s
}

// With returns a copy of the scope with parts appended. Empty parts are skipped.
func (s Scope) With(parts ...string) Scope {
	out := slices.Clone(s.Parts)
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	s.Parts = out
	return s
}

// WithFilters appends the active view filters so a filtered export never shares a
// name with the unfiltered one.
func (s Scope) WithFilters(f model.Filters) Scope {
	var parts []string
	if tag := strings.TrimSpace(f.TagFilter()); tag != "" {
		parts = append(parts, "tag"+strings.ReplaceAll(tag, " ", "-"))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		parts = append(parts, "q"+strings.ReplaceAll(q, " ", "-"))
	}
	if f.ZeroSalesOnly {
		parts = append(parts, "zerosales")
	}
	return s.With(parts...)
}

func orAll(s string) string {
	return or(s, allScope)
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// AdRecommendationsScope names an ads recommendation export, e.g.
// ad_recommendations_ws1_myntra_brandALL_2024-01-01_to_2024-01-31.csv.
func AdRecommendationsScope(workspace, portal, brand, start, end string) Scope {
	return Scope{
		Kind:  "ad_recommendations",
		Parts: []string{workspace, orAll(portal), "brand" + orAll(brand)},
		Start: start,
		End:   end,
	}
}

// ActionBoardScope names one action board bucket export, e.g.
// action_board_ws1_myntra_brandALL_scale_now_2024-01-01.csv.
func ActionBoardScope(workspace, portal, brand, bucket, monthStart string) Scope {
	return Scope{
		Kind:  "action_board",
		Parts: []string{workspace, orAll(portal), "brand" + orAll(brand), bucket, or(monthStart, "na")},
	}
}

// WindowScope names a workspace export over a date window, e.g.
// brand_gmv_asp_ws1_ALL_2024-01-01_to_2024-01-31.csv.
func WindowScope(kind, workspace, portal, start, end string) Scope {
	return Scope{Kind: kind, Parts: []string{workspace, orAll(portal)}, Start: start, End: end}
}

// ReturnsScope names a returns insight export. view is "stylewise", "skuwise",
// "cohort_*" or "heatmap_style"/"heatmap_sku"; brand is included only when set.
func ReturnsScope(view, brand, workspace, portal, start, end string) Scope {
	kind := "returns_" + view
	if strings.TrimSpace(brand) != "" {
		kind += "_" + brand
	}
	return WindowScope(kind, workspace, portal, start, end)
}

// ForecastSelectedScope names a single style forecast export.
func ForecastSelectedScope(workspace, styleKey, mode, start, end string) Scope {
	return Scope{
		Kind:  "forecast_selected",
		Parts: []string{workspace, styleKey, mode},
		Start: start,
		End:   end,
	}
}

// ForecastDetailedScope names the batch forecast export of many styles.
func ForecastDetailedScope(workspace, start, end string) Scope {
	return Scope{Kind: "forecast_ALL_detailed", Parts: []string{or(workspace, "default")}, Start: start, End: end}
}

// ZeroSalesScope names a zero-sales-since-live export.
func ZeroSalesScope(workspace, brand string, minDays, topN int, dir string) Scope {
	return Scope{
		Kind: "zero-sales",
		Parts: []string{
			workspace,
			"brand" + orAll(brand),
			"min" + strconv.Itoa(minDays),
			"top" + strconv.Itoa(topN),
			"dayslive",
			dir,
		},
	}
}

// ReportScope names the dashboard report bundle.
func ReportScope(workspace, portal, start, end string) Scope {
	return Scope{Kind: "projectm", Parts: []string{workspace, orAll(portal)}, Start: start, End: end, Ext: ".zip"}
}

// FailuresFilename derives the failure manifest name from an export file name.
func FailuresFilename(filename string) string {
	base := strings.TrimSuffix(filename, ".csv")
	return base + "_failures.csv"
}
