package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// envelope is one line of a streaming generate response.
type envelope struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Assemble reads newline delimited envelopes from r and concatenates their
// response text in arrival order. Lines that are not valid JSON are logged
// and skipped. Reading stops at the first envelope marked done, or at EOF.
// Lines are decoded only once complete, so multi-byte characters split
// across reads are reassembled before decoding.
func Assemble(ctx context.Context, r io.Reader) (string, error) {
	reader := bufio.NewReader(r)
	var buf strings.Builder
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		raw, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", fmt.Errorf("failed reading generation stream: %w", readErr)
		}
		line++

		if raw = bytes.TrimSpace(raw); len(raw) > 0 {
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				slog.WarnContext(ctx, "skipping undecodable stream line", "line", line, "error", err)
			} else {
				if env.Error != "" {
					return "", fmt.Errorf("generation stream reported error: %s", env.Error)
				}
				buf.WriteString(env.Response)
				if env.Done {
					break
				}
			}
		}
		if readErr != nil {
			break
		}
	}
	return buf.String(), nil
}

// Reconstruct assembles a streamed response and decodes the recipes in it.
// sources names the selected products the generation was asked to use.
func Reconstruct(ctx context.Context, r io.Reader, sources []string) ([]Recipe, error) {
	text, err := Assemble(ctx, r)
	if err != nil {
		return nil, err
	}
	return Decode(ctx, text, sources)
}

// Decode salvages text and parses it as recipes. A JSON array, a single
// recipe object or an object with a "recipes" array are accepted. Every
// recipe gets a fresh id, timestamps, the provenance flag and a copy of
// sources; those override anything the model wrote for them.
func Decode(ctx context.Context, text string, sources []string) ([]Recipe, error) {
	salvaged := Salvage(text)

	recipes, err := decodeRecipes(ctx, []byte(salvaged))
	if err != nil {
		slog.ErrorContext(ctx, "failed to reconstruct recipes", "error", err, "length", len(salvaged))
		return nil, &ReconstructionError{Text: salvaged, Err: err}
	}

	now := time.Now()
	for i := range recipes {
		recipes[i].ID = uuid.NewString()
		recipes[i].CreatedAt = now
		recipes[i].UpdatedAt = now
		recipes[i].GeneratedFromDiscounts = true
		recipes[i].SourceProducts = slices.Clone(sources)
	}
	slog.InfoContext(ctx, "reconstructed recipes", "count", len(recipes))
	return recipes, nil
}

func decodeRecipes(ctx context.Context, data []byte) ([]Recipe, error) {
	if len(data) == 0 {
		return nil, errors.New("empty response")
	}
	if data[0] == '[' {
		return decodeElements(ctx, data)
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("expected a JSON array or object, got %q", truncate(string(data), 32))
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if list, ok := wrapped["recipes"]; ok && len(bytes.TrimSpace(list)) > 0 && bytes.TrimSpace(list)[0] == '[' {
		return decodeElements(ctx, list)
	}
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, err
	}
	return []Recipe{recipe}, nil
}

// decodeElements decodes each array element on its own. An element that
// still does not fit a Recipe is logged and dropped; only an array with no
// usable element is an error.
func decodeElements(ctx context.Context, data []byte) ([]Recipe, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, err
	}
	recipes := make([]Recipe, 0, len(elements))
	var errs []error
	for i, element := range elements {
		var recipe Recipe
		if err := json.Unmarshal(element, &recipe); err != nil {
			slog.WarnContext(ctx, "skipping malformed recipe", "index", i, "error", err)
			errs = append(errs, fmt.Errorf("recipe %d: %w", i, err))
			continue
		}
		recipes = append(recipes, recipe)
	}
	if len(recipes) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return recipes, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
