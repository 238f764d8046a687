package biography

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Templates holds the prompt text for each generation stage. Placeholders
// {name}, {job}, {place} and {locale} are substituted at render time.
type Templates struct {
	Biography string `yaml:"biography"`
	Portrait  string `yaml:"portrait"`
	Scene     string `yaml:"scene"`
}

const defaultBiographyTemplate = `Create a fictional and funny wikipedia biography of {name} as a {job} from {place}.
The output format must be html and css in typical wikipedia format. Strictly no emojis in the output.
Write the article text in the language for locale "{locale}".
Use the placeholder image named portrait.jpg in the assets folder from the current directory.
The placeholder image is given by element id "portrait-image".
Also include a video element with id "scene-video" and a placeholder src of assets/scene.mp4 in the infobox.
Use the section headers below:
- Early life
- Career
- Personal life
- Awards and Achievements
- Wealth
- Scandals
- References
- Further reading`

const defaultPortraitTemplate = `Create a photo of the attached image as a {job} performing his job in {place}.`

const defaultSceneTemplate = `A short cinematic clip of this person working as a {job} in {place}.`

// DefaultTemplates returns the built-in prompt set.
func DefaultTemplates() Templates {
	return Templates{
		Biography: defaultBiographyTemplate,
		Portrait:  defaultPortraitTemplate,
		Scene:     defaultSceneTemplate,
	}
}

// LoadTemplates reads a YAML override file on top of the defaults. An empty
// path returns the defaults unchanged; fields absent from the file keep
// their default text.
func LoadTemplates(path string) (Templates, error) {
	templates := DefaultTemplates()
	if strings.TrimSpace(path) == "" {
		return templates, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return templates, fmt.Errorf("biography: read templates: %w", err)
	}
	var override Templates
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return templates, fmt.Errorf("biography: parse templates: %w", err)
	}
	if strings.TrimSpace(override.Biography) != "" {
		templates.Biography = override.Biography
	}
	if strings.TrimSpace(override.Portrait) != "" {
		templates.Portrait = override.Portrait
	}
	if strings.TrimSpace(override.Scene) != "" {
		templates.Scene = override.Scene
	}
	return templates, nil
}

// RenderBiography fills the text-stage prompt.
func (t Templates) RenderBiography(req Request) string {
	return render(t.Biography, req)
}

// RenderPortrait fills the image-stage prompt.
func (t Templates) RenderPortrait(req Request) string {
	return render(t.Portrait, req)
}

// RenderScene fills the video-stage prompt.
func (t Templates) RenderScene(req Request) string {
	return render(t.Scene, req)
}

func render(template string, req Request) string {
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	replacer := strings.NewReplacer(
		"{name}", req.Name,
		"{job}", req.Job,
		"{place}", req.Place,
		"{locale}", locale,
	)
	return replacer.Replace(template)
}
