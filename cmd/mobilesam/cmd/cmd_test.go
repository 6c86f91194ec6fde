package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/getcharzp/go-mobilesam/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    sam.Point
		wantErr bool
	}{
		{in: "10,20", want: sam.Point{X: 10, Y: 20, Label: sam.LabelForeground}},
		{in: " 1.5 , 2.25 ", want: sam.Point{X: 1.5, Y: 2.25, Label: sam.LabelForeground}},
		{in: "3,4,0", want: sam.Point{X: 3, Y: 4, Label: sam.LabelBackground}},
		{in: "3,4,2", want: sam.Point{X: 3, Y: 4, Label: sam.LabelBoxTopLeft}},
		{in: "3", wantErr: true},
		{in: "3,4,5,6", wantErr: true},
		{in: "a,4", wantErr: true},
		{in: "3,4,fg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePoints(t *testing.T) {
	_, err := parsePoints(nil)
	assert.Error(t, err)

	points, err := parsePoints([]string{"1,2", "3,4,0"})
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = parsePoints([]string{"1,2", "bad"})
	assert.Error(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig(newViper(), "")
	require.NoError(t, err)

	def := sam.DefaultConfig()
	assert.Equal(t, def, cfg.SamConfig())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogDevelopment)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mobilesam.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
onnxruntime_lib: /opt/ort/libonnxruntime.so
encoder: /models/enc.onnx
decoder: /models/dec.onnx
num_threads: 4
log_level: debug
`), 0o600))
	t.Setenv("MOBILESAM_USE_CUDA", "true")
	t.Setenv("MOBILESAM_DECODER", "/env/dec.onnx")

	cfg, err := loadConfig(newViper(), file)
	require.NoError(t, err)

	assert.Equal(t, sam.Config{
		OnnxRuntimeLibPath: "/opt/ort/libonnxruntime.so",
		EncodeModelPath:    "/models/enc.onnx",
		DecodeModelPath:    "/env/dec.onnx",
		UseCuda:            true,
		NumThreads:         4,
	}, cfg.SamConfig())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(newViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "mobilesam.yaml")
	require.NoError(t, os.WriteFile(file, []byte("encoder: \"\"\nnum_threads: -1\n"), 0o600))
	_, err = loadConfig(newViper(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoder")
	assert.Contains(t, err.Error(), "num_threads")
}

func TestSegmentCmd_RequiresImageAndPoint(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"segment"})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestConfigCmd_FlagsOverrideEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MOBILESAM_ENCODER", "/env/enc.onnx")
	t.Setenv("MOBILESAM_NUM_THREADS", "8")

	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--encoder", "/flag/enc.onnx", "--log-level", "warn", "config"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "encoder: /flag/enc.onnx")
	assert.Contains(t, out.String(), "num_threads: 8")
	assert.Contains(t, out.String(), "log_level: warn")
}

func TestRootCmd_Help(t *testing.T) {
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"segment", "--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "--point")
	assert.Contains(t, out.String(), "--overlay")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
