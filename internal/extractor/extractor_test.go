package extractor

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/af-corp/imagerouter/internal/lexicon"
	"github.com/af-corp/imagerouter/internal/types"
)

func TestGradeLevel(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"Generate an image of the water cycle for 5th grade", "5th grade"},
		{"Draw a picture of a dinosaur for grade 2", "grade 2"},
		{"Erstelle ein Bild für 7. Klasse zur Photosynthese", "7. Klasse"},
		{"Zeichne eine Landkarte von Deutschland für Klasse 4", "Klasse 4"},
		{"Male ein Aquarell für die 3 Klasse", "für die 3 Klasse"},
		{"Ein Bild von einem Vulkan für die 5. Klasse", "5. Klasse"},
		{"Gestalte ein Plakat für die Grundschule", "Grundschule"},
		{"Poster für das Gymnasium", "Gymnasium"},
		{"Sketch the 10th grade chemistry lab in grade 9 style", "10th grade"},
		{"Entferne den Hintergrund", ""},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, GradeLevel(tt.prompt))
		})
	}
}

func TestGradeLevelMatchesGermanExample(t *testing.T) {
	got := GradeLevel("Erstelle ein Bild für 7. Klasse zur Photosynthese")
	assert.Regexp(t, regexp.MustCompile(`(?i)7|klasse`), got)
}

func TestSubject(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"Create an image of a cat sitting on a tree", "a cat sitting on a tree"},
		{"Generate an image of the water cycle for 5th grade", "the water cycle"},
		{`Create a poster titled "Unser Wald" for biology`, "Unser Wald"},
		{"Erstelle ein Plakat „Der Igel“ für die 2. Klasse", "Der Igel"},
		{"Ein Bild von einem Vulkan für die 5. Klasse", "einem Vulkan"},
		{"Create an image of a knight in the style of a comic", "a knight"},
		{"Tell me about mathematics formulas", ""},
		{"Erstelle ein Bild für 7. Klasse zur Photosynthese", ""},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.prompt))
		})
	}
}

func TestExtract_TopicAndStyle(t *testing.T) {
	e := New(lexicon.Default())

	tests := []struct {
		prompt string
		topic  string
		style  string
	}{
		{"Tell me about mathematics formulas", "Mathematics", ""},
		{"Erstelle eine Grafik für Mathe", "Mathe", ""},
		{`Create a poster titled "Unser Wald" for biology`, "Biology", ""},
		{"Male ein Aquarell für die 3 Klasse", "", "Aquarell"},
		{"Sketch the 10th grade chemistry lab", "Chemistry", "Sketch"},
		{"Create a photorealistic picture of a volcano", "", "Realistic"},
		{"Ein Diagramm der Photosynthese, als Skizze", "", "Skizze"},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			got := e.Extract(tt.prompt, nil)
			assert.Equal(t, tt.topic, got.Topic)
			assert.Equal(t, tt.style, got.Style)
		})
	}
}

func TestExtract_AllFields(t *testing.T) {
	e := New(lexicon.Default())

	got := e.Extract("Generate a watercolor image of the water cycle for 5th grade science", nil)
	assert.Equal(t, types.ExtractedEntities{
		Subject:    "the water cycle",
		GradeLevel: "5th grade",
		Topic:      "Science",
		Style:      "Watercolor",
	}, got)
}

func TestExtract_TeacherContextTopicFallback(t *testing.T) {
	e := New(lexicon.Default())
	tc := &types.TeacherContext{Subjects: []string{" ", "biologie"}, Grades: []string{"8"}}

	got := e.Extract("Zeichne eine Pflanzenzelle", tc)
	assert.Equal(t, "Biologie", got.Topic)
	assert.Empty(t, got.GradeLevel, "grade level never comes from context")

	got = e.Extract("Zeichne ein Diagramm für Physik", tc)
	assert.Equal(t, "Physik", got.Topic, "prompt topic wins over context")

	assert.Equal(t, []string{" ", "biologie"}, tc.Subjects, "context must not be mutated")
}

func TestExtract_CustomVocabulary(t *testing.T) {
	e := New(lexicon.Lexicon{
		Topics: []string{"Sachkunde", ""},
		Styles: []string{"pixel art"},
	})

	got := e.Extract("Ein Sachkunde-Poster im Pixel Art Look", nil)
	assert.Equal(t, "Sachkunde", got.Topic)
	assert.Equal(t, "Pixel Art", got.Style)
}

func TestExtract_ConcurrentUse(t *testing.T) {
	e := New(lexicon.Default())
	prompt := "Create a cartoon picture of a fox for 3rd grade biology"
	want := e.Extract(prompt, nil)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, e.Extract(prompt, nil))
		}()
	}
	wg.Wait()
}
