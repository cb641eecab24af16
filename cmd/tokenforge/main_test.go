package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exampleCorpus = strings.Join([]string{
	"low low low low low",
	"lowest lowest",
	"newer newer newer newer newer newer",
	"wider wider wider",
}, "\n")

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// trainModel trains the example corpus with <unk> at id 0 and returns the output path.
func trainModel(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(exampleCorpus), 0o600))

	out := filepath.Join(dir, "model.tfm")
	args := append([]string{
		"train",
		"--progress=false",
		"--log-level", "warn",
		"--target-vocab-size", "15",
		"--min-pair-frequency", "1",
		"--workers", "1",
		"--out", out,
		corpusPath,
	}, extra...)
	r := runCLI(t, "", args...)
	require.Equal(t, 0, r.code, r.stderr)
	return out
}

func TestRun_Usage(t *testing.T) {
	r := runCLI(t, "")
	assert.Equal(t, 0, r.code)
	for _, name := range commandOrder {
		assert.Contains(t, r.stderr, name)
	}

	r = runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, r.code)
	assert.Contains(t, r.stderr, `unknown command "frobnicate"`)
}

func TestRun_Version(t *testing.T) {
	r := runCLI(t, "", "version")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, version)
}

func TestRun_FlagHelp(t *testing.T) {
	r := runCLI(t, "", "encode", "--help")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stderr, "--model")
}

func TestTrainEncodeDecode(t *testing.T) {
	model := trainModel(t)
	require.FileExists(t, model)

	r := runCLI(t, "", "encode", "--model", model, "lower", "newer")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "13 4 12 8 14 12\n", r.stdout)

	r = runCLI(t, "lower newer\n\nlow\n", "encode", "--model", model)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "13 4 12 8 14 12\n\n13 3\n", r.stdout)

	r = runCLI(t, "", "decode", "--model", model, "13", "4", "12", "8", "14", "12")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "lower newer\n", r.stdout)

	r = runCLI(t, "13,3\n13 4 12\n", "decode", "--model", model)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "low\nlower\n", r.stdout)
}

func TestEncode_Offsets(t *testing.T) {
	model := trainModel(t)

	r := runCLI(t, "", "encode", "--model", model, "--offsets", "low")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "13\t\"lo\"\t0:2\n3\t\"w</w>\"\t2:3\n", r.stdout)

	r = runCLI(t, "", "encode", "--model", model, "--offsets")
	assert.Equal(t, 1, r.code)
}

func TestEncode_UnknownMapsToUnk(t *testing.T) {
	model := trainModel(t)

	r := runCLI(t, "", "encode", "--model", model, "zlow")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "0 13 3\n", r.stdout)
}

func TestEncode_UnknownRaises(t *testing.T) {
	model := trainModel(t, "--unknown-token-policy", "error")

	r := runCLI(t, "", "encode", "--model", model, "zlow")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "unknown symbol")
}

func TestDecode_Errors(t *testing.T) {
	model := trainModel(t)

	r := runCLI(t, "", "decode", "--model", model, "abc")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `invalid token id "abc"`)

	r = runCLI(t, "", "decode", "--model", model, "999")
	assert.Equal(t, 1, r.code)
}

func TestCommands_RequireModel(t *testing.T) {
	for _, name := range []string{"encode", "decode", "inspect", "compare"} {
		r := runCLI(t, "", name)
		assert.Equal(t, 1, r.code, name)
		assert.Contains(t, r.stderr, "--model is required", name)
	}
}

func TestInspect(t *testing.T) {
	model := trainModel(t)

	r := runCLI(t, "", "inspect", "--model", model, "--prefix", "lo", "--merges", "2")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "model id:")
	assert.Contains(t, r.stdout, "corpus.files:")
	assert.Contains(t, r.stdout, "vocab size:")
	assert.Contains(t, r.stdout, "15")
	assert.Contains(t, r.stdout, "lowercase")
	assert.Contains(t, r.stdout, "map(0)")
	assert.Contains(t, r.stdout, "<unk>")
	assert.Contains(t, r.stdout, "1 symbols with prefix \"lo\":\n13\t\"lo\"\n")
	assert.Contains(t, r.stdout, "first 2 merges:\n0\t\"e\" + \"r</w>\" -> \"er</w>\"\n1\t\"l\" + \"o\" -> \"lo\"\n")
}

func TestTrain_HuggingFace(t *testing.T) {
	model := trainModel(t, "--format", "huggingface")
	hf := strings.TrimSuffix(model, ".tfm") + ".json"
	require.FileExists(t, hf)
	assert.NoFileExists(t, model)

	r := runCLI(t, "", "encode", "--model", hf, "lower", "newer")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "13 4 12 8 14 12\n", r.stdout)

	r = runCLI(t, "", "inspect", "--model", hf)
	require.Equal(t, 0, r.code, r.stderr)
	assert.NotContains(t, r.stdout, "model id:")
}

func TestTrain_Errors(t *testing.T) {
	r := runCLI(t, "", "train", "--progress=false")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "no corpus files given")

	r = runCLI(t, "", "train", "--progress=false", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, 1, r.code)

	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(exampleCorpus), 0o600))

	r = runCLI(t, "", "train", "--progress=false", "--format", "xml", corpusPath)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `unknown output format "xml"`)

	r = runCLI(t, "", "train", "--progress=false", "--target-vocab-size", "0", corpusPath)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "TargetVocabSize")
}

func TestCompare_AgainstSelf(t *testing.T) {
	model := trainModel(t)

	r := runCLI(t, "lower newer\nlow\n", "compare", "--model", model, "--reference", model)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "token ratio:")
	assert.Contains(t, r.stdout, "1.000")
}
