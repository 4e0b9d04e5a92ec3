package rendering

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/utils"
)

const (
	PDFLaTeX = "pdflatex"
	XeLaTeX  = "xelatex"

	// CompilationTimeout bounds a single engine run.
	CompilationTimeout = 60 * time.Second

	resumeClass   = "resume.cls"
	maxLogExcerpt = 2000
)

// runner executes an engine in dir and returns its combined output.
type runner func(ctx context.Context, dir, engine string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, engine string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, engine, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Compiler turns LaTeX sources into PDFs inside a work directory.
type Compiler struct {
	workDir string
	timeout time.Duration
	logger  *zap.Logger
	run     runner
}

func NewCompiler(workDir string, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		workDir: workDir,
		timeout: CompilationTimeout,
		logger:  logger,
		run:     execRunner,
	}
}

// Compile writes source to <name>.tex and runs engine on it. It returns the
// path of <name>.pdf.
func (c *Compiler) Compile(ctx context.Context, engine, name, source string) (string, error) {
	if engine == "" {
		engine = PDFLaTeX
	}
	if err := c.prepare(); err != nil {
		return "", &RenderError{Message: "prepare work directory", Cause: err}
	}

	texPath := filepath.Join(c.workDir, name+".tex")
	pdfPath := filepath.Join(c.workDir, name+".pdf")
	if err := os.WriteFile(texPath, []byte(source), 0o644); err != nil {
		return "", &RenderError{Message: "write " + texPath, Cause: err}
	}
	if err := os.Remove(pdfPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", &RenderError{Message: "remove stale " + pdfPath, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	output, runErr := c.run(ctx, c.workDir, engine, "-interaction=nonstopmode", name+".tex")

	log := c.logger.With(zap.String("engine", engine), zap.String("document", name))
	if runErr != nil {
		log.Error("latex compilation failed",
			zap.Error(runErr),
			zap.String("output", utils.TruncateForLog(string(output), maxLogExcerpt)),
		)
		return "", &RenderError{
			Message: fmt.Sprintf("%s failed for %s", engine, name),
			Output:  tail(string(output), maxLogExcerpt),
			Cause:   runErr,
		}
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", &RenderError{
			Message: "PDF was not generated",
			Output:  tail(string(output), maxLogExcerpt),
			Cause:   err,
		}
	}

	log.Debug("latex compiled", zap.Duration("took", time.Since(started)))
	return pdfPath, nil
}

func (c *Compiler) prepare() error {
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return err
	}
	cls := filepath.Join(c.workDir, resumeClass)
	if _, err := os.Stat(cls); err == nil {
		return nil
	}
	data, err := templateFS.ReadFile("templates/" + resumeClass)
	if err != nil {
		return err
	}
	return os.WriteFile(cls, data, 0o644)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
