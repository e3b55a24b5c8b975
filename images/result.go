package images

// ImageType distinguishes the hero from section diagrams.
type ImageType string

const (
	TypeHero    ImageType = "hero"
	TypeDiagram ImageType = "diagram"
)

// GeneratedImage is an image that exists on disk, freshly generated or reused.
type GeneratedImage struct {
	ImageID       string    `json:"image_id"`
	ImageType     ImageType `json:"image_type"`
	DiagramType   string    `json:"diagram_type,omitempty"`
	TargetSection string    `json:"target_section,omitempty"`
	FilePath      string    `json:"file_path"`
	PromptUsed    string    `json:"prompt_used"`
	Reused        bool      `json:"reused,omitempty"`
}

// Failure records an image whose retries were exhausted.
type Failure struct {
	ImageID       string `json:"image_id"`
	TargetSection string `json:"target_section,omitempty"`
	Error         string `json:"error"`
}

// Result is the outcome of one generation run. Specs without a prompt
// appear in neither list.
type Result struct {
	Images   []GeneratedImage `json:"images"`
	Failures []Failure        `json:"failures"`
}

// Lookup returns the generated image with the given id.
func (r *Result) Lookup(imageID string) (GeneratedImage, bool) {
	if r == nil {
		return GeneratedImage{}, false
	}
	for _, img := range r.Images {
		if img.ImageID == imageID {
			return img, true
		}
	}
	return GeneratedImage{}, false
}
