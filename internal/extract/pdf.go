package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// pdfParser is an in-process PDF text extractor used when pdftotext is
// unavailable.
type pdfParser struct {
	name string
	fn   func(path string) (string, error)
}

// pdfFallbacks are tried in order; the first success wins.
var pdfFallbacks = []pdfParser{
	{name: "ledongthuc/pdf", fn: plainTextPDF},
	{name: "pdfcpu", fn: contentStreamPDF},
}

func (e *Extractor) extractPDF(ctx context.Context, path string, maxTextBytes int64) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.pdfToText, "-layout", "-nopgbrk", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		startErr := silerrors.New(silerrors.ErrCodeExtractStart,
			fmt.Sprintf("failed to run %s", e.pdfToText), err).
			WithSuggestion("is poppler installed? Try `brew install poppler` or `apt install poppler-utils`")
		if !e.pdfFallback {
			return Result{}, startErr
		}
		return e.extractPDFInProcess(path, maxTextBytes, startErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		status := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ProcessState.String()
		}
		return Result{}, silerrors.New(silerrors.ErrCodeExtractExit,
			fmt.Sprintf("pdftotext failed for %s (%s): %s", path, status, strings.TrimSpace(stderr.String())), err)
	}

	text, truncated := capText(stdout.Bytes(), maxTextBytes)
	return Result{Kind: KindPDF, Text: text, Truncated: truncated}, nil
}

func (e *Extractor) extractPDFInProcess(path string, maxTextBytes int64, startErr *silerrors.SiloError) (Result, error) {
	for _, p := range pdfFallbacks {
		text, err := p.fn(path)
		if err != nil {
			e.logger.Debug("pdf fallback failed",
				slog.String("parser", p.name),
				slog.String("path", path),
				slog.String("error", err.Error()))
			startErr = startErr.WithDetail(p.name, err.Error())
			continue
		}
		e.logger.Debug("pdf extracted in process",
			slog.String("parser", p.name),
			slog.String("path", path))
		out, truncated := capText([]byte(text), maxTextBytes)
		return Result{Kind: KindPDF, Text: out, Truncated: truncated}, nil
	}
	return Result{}, startErr
}
