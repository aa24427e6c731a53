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

	mast "github.com/google/mangle/ast"

	iast "idpgo/internal/ast"
	"idpgo/internal/config"
	"idpgo/internal/ecnf"
	"idpgo/internal/inference"
)

const testDoc = `
VOCABULARY g
	type Node
	Edge(Node, Node)
END

STRUCTURE s OVER g
	Decl edge(X, Y).
	edge("a", "b").
END

THEORY t OVER g
	?x[Node],y[Node]: Edge(x, y).
END
`

func writeTestDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.idpgo")
	require.NoError(t, os.WriteFile(path, []byte(testDoc), 0o644))
	return path
}

func TestLoadDocument(t *testing.T) {
	doc, err := loadDocument(writeTestDoc(t))
	require.NoError(t, err)
	require.NotNil(t, doc.Vocabulary)
	require.NotNil(t, doc.Structure)
	require.NotNil(t, doc.Theory)
}

func TestLoadDocumentMissingFile(t *testing.T) {
	_, err := loadDocument(filepath.Join(t.TempDir(), "missing.idpgo"))
	assert.Error(t, err)
}

func TestTupleString(t *testing.T) {
	assert.Equal(t, "", tupleString(nil))
	got := tupleString([]iast.DomainElement{mast.String("a"), mast.String("b")})
	assert.True(t, strings.HasPrefix(got, "(") && strings.HasSuffix(got, ")"))
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
}

func TestPrintModel(t *testing.T) {
	m := inference.Model{1: true, 2: false}
	names := map[int]string{1: "Edge(a,b)"}

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	printModel(m, names)
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Edge(a,b) = true")
	assert.Contains(t, out, "atom(2) = false")
}

func TestGroundCmdWritesECNF(t *testing.T) {
	cfg = config.DefaultConfig()
	docPath := writeTestDoc(t)
	outPath := filepath.Join(t.TempDir(), "out.ecnf")
	groundOutPath = outPath
	defer func() { groundOutPath = "" }()

	require.NoError(t, groundCmd.RunE(groundCmd, []string{docPath}))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	theory, err := ecnf.Read(f)
	require.NoError(t, err)
	assert.False(t, theory.IsTriviallyUnsat())
}

func TestPropagateCmdRuns(t *testing.T) {
	cfg = config.DefaultConfig()
	docPath := writeTestDoc(t)
	require.NoError(t, propagateCmd.RunE(propagateCmd, []string{docPath}))
}

func TestModelExpandCmdRuns(t *testing.T) {
	cfg = config.DefaultConfig()
	docPath := writeTestDoc(t)
	require.NoError(t, modelExpandCmd.RunE(modelExpandCmd, []string{docPath}))
}

func TestModelExpandPipelineFindsModel(t *testing.T) {
	cfg = config.DefaultConfig()
	doc, err := loadDocument(writeTestDoc(t))
	require.NoError(t, err)

	models, unsat, _, err := inference.ModelExpand(context.Background(), cfg.Options, doc.Theory, doc.Structure, inference.NewBruteForce(), inference.ModelExpandRequest{})
	require.NoError(t, err)
	assert.False(t, unsat)
	assert.NotEmpty(t, models)
}
