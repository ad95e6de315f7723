package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pyanalyzer/internal/core/app"
	"pyanalyzer/internal/core/config"
	"pyanalyzer/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, tmpDir string) {
	t.Helper()
	mainPy := `from pkg.util import greet, farewell as bye

def main(name: str = "world") -> None:
    """Entry point."""
    print(greet(name))
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "main.py"), []byte(mainPy), 0o644))

	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "pkg"), 0o755))
	utilPy := `def greet(name, *rest, loud=False, **kw):
    ...

def farewell(
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pkg", "util.py"), []byte(utilPy), 0o644))

	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "__pycache__", "skip.py"), []byte("import x"), 0o644))
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	cfg := config.Default()
	cfg.Watch.Paths = []string{tmpDir}
	cfg.Watch.Debounce = 20 * time.Millisecond
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(tmpDir, "data", "history.db")

	appInstance, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = appInstance.Close(context.Background()) })

	ctx := context.Background()
	svc := appInstance.AnalysisService()

	result, err := svc.RunScan(ctx, ports.ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesScanned, "__pycache__ must be excluded")
	assert.Equal(t, 1, result.FilesWithDiagnostics)
	assert.Empty(t, result.Warnings)

	mainFile := filepath.Join(tmpDir, "main.py")
	var mainResult *ports.FileAnalysis
	for i := range result.Files {
		if result.Files[i].Path == mainFile {
			mainResult = &result.Files[i]
		}
	}
	require.NotNil(t, mainResult)
	res := mainResult.Result
	require.Len(t, res.ImportedNames, 2)
	assert.Equal(t, "pkg.util", res.ImportedNames[0].Module)
	assert.Equal(t, "farewell", res.ImportedNames[1].Name)
	require.Len(t, res.DefinedFunctions, 1)
	assert.Equal(t, "Entry point.", res.DefinedFunctions[0].Docstring)
	assert.Equal(t, []string{"print", "greet"}, res.CalledNames)

	records, err := svc.History(ctx, mainFile, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, mainResult.ContentHash, records[0].ContentHash)

	// Fix the broken file and let the watcher pick it up.
	var mu sync.Mutex
	var seen []ports.FileAnalysis
	ws := appInstance.WatchService(func(fa ports.FileAnalysis) {
		mu.Lock()
		seen = append(seen, fa)
		mu.Unlock()
	})
	require.NoError(t, ws.Start(ctx, nil))
	t.Cleanup(func() { _ = ws.Close() })

	utilFile := filepath.Join(tmpDir, "pkg", "util.py")
	require.NoError(t, os.WriteFile(utilFile, []byte("def greet(name):\n    ...\n\ndef farewell():\n    pass\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, fa := range seen {
			if fa.Path == utilFile && fa.Result != nil && len(fa.Result.DefinedFunctions) == 2 {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	records, err = svc.History(ctx, utilFile, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(records), 2)
	assert.Equal(t, 0, records[0].DiagnosticCount, "newest record first")
}
