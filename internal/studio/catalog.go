package studio

// Style is one entry of the fixed artistic style catalog.
type Style struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// catalog is fixed at process start and never mutated.
var catalog = []Style{
	{ID: "cinematic", DisplayName: "Cinematic"},
	{ID: "illustrative", DisplayName: "Illustrative"},
	{ID: "futuristic", DisplayName: "Futuristic"},
	{ID: "minimalist", DisplayName: "Minimalist"},
	{ID: "photorealistic", DisplayName: "Photorealistic"},
	{ID: "vintage", DisplayName: "Vintage"},
	{ID: "3d-render", DisplayName: "3D Render"},
	{ID: "cartoonish", DisplayName: "Cartoonish"},
}

// Styles returns a copy of the style catalog in display order.
func Styles() []Style {
	out := make([]Style, len(catalog))
	copy(out, catalog)
	return out
}

// LookupStyle returns the catalog entry for id.
func LookupStyle(id string) (Style, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// StyleNames resolves a selection to display names in catalog order, so the
// same selection always produces the same prompt and caption.
func StyleNames(selected map[string]struct{}) []string {
	var names []string
	for _, s := range catalog {
		if _, ok := selected[s.ID]; ok {
			names = append(names, s.DisplayName)
		}
	}
	return names
}
