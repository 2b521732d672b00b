package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "Edit the image to remove the background")
	require.NoError(t, err)

	var res struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Overridden bool    `json:"overridden"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "edit_image", res.Intent)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)
	assert.False(t, res.Overridden)
}

func TestClassify_Override(t *testing.T) {
	out, err := run(t, "classify", "Zeichne einen Fuchs", "--override", "unknown")
	require.NoError(t, err)
	assert.Contains(t, out, `"overridden": true`)
	assert.Contains(t, out, `"intent": "unknown"`)

	_, err = run(t, "classify", "Zeichne einen Fuchs", "--override", "paint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_OVERRIDE")
}

func TestEval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
samples:
  - {lang: en, intent: create_image, prompt: "Create an image of a cat sitting on a tree"}
  - {lang: en, intent: edit_image, prompt: "Edit the image to remove the background"}
`), 0o644))

	out, err := run(t, "eval", path, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "overall")
	assert.Contains(t, out, "lang:en")

	_, err = run(t, "eval", path, "--min-accuracy", "1.01")
	require.Error(t, err)
}
