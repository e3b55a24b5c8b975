package images

import "fmt"

// HeroImageID is the fixed identifier of the hero image.
const HeroImageID = "hero"

// Plan describes which images to generate and where diagrams belong.
type Plan struct {
	Hero     HeroSpec      `json:"hero"`
	Diagrams []DiagramSpec `json:"diagrams"`
}

type HeroSpec struct {
	Prompt      string `json:"prompt"`
	Description string `json:"description,omitempty"`
}

// DiagramSpec targets one H2 section of the article by title.
type DiagramSpec struct {
	ImageID       string `json:"image_id"`
	TargetSection string `json:"target_section"`
	DiagramType   string `json:"diagram_type,omitempty"`
	Prompt        string `json:"prompt"`
	AltText       string `json:"alt_text,omitempty"`
	Caption       string `json:"caption,omitempty"`
}

// Normalize fills defaults the planner may leave out: a diagram without an
// image_id becomes section_<n> (1-based) and a missing diagram_type becomes
// infographic.
func (p *Plan) Normalize() {
	for i := range p.Diagrams {
		d := &p.Diagrams[i]
		if d.ImageID == "" {
			d.ImageID = fmt.Sprintf("section_%d", i+1)
		}
		if d.DiagramType == "" {
			d.DiagramType = "infographic"
		}
	}
}

// Prompted counts the specs that will actually be sent for generation.
func (p *Plan) Prompted() int {
	n := 0
	if p.Hero.Prompt != "" {
		n++
	}
	for _, d := range p.Diagrams {
		if d.Prompt != "" {
			n++
		}
	}
	return n
}
