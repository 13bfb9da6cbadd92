package diff

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/onexay/revwalk/internal/storage"
)

// Patch renders a change as a unified diff with git-style headers.
func Patch(ctx context.Context, r storage.ObjectReader, c Change) (string, error) {
	before, err := content(ctx, r, c.Old)
	if err != nil {
		return "", err
	}
	after, err := content(ctx, r, c.New)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	oldName, newName := c.Old.Path, c.New.Path
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", oldName, newName)
	switch c.Type {
	case ChangeAdd:
		fmt.Fprintf(&b, "new file mode %06o\n", c.New.Mode)
	case ChangeDelete:
		fmt.Fprintf(&b, "deleted file mode %06o\n", c.Old.Mode)
	case ChangeRename, ChangeCopy:
		fmt.Fprintf(&b, "%s from %s\n%s to %s\n", c.Type, c.Old.Path, c.Type, c.New.Path)
	}
	if before == after {
		return b.String(), nil
	}

	ud := difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: sideName("a/", c.Old),
		ToFile:   sideName("b/", c.New),
		Context:  3,
	}
	body, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	return b.String(), nil
}

func content(ctx context.Context, r storage.ObjectReader, s Side) (string, error) {
	if !s.Exists() || s.ID == "" {
		return "", nil
	}
	data, err := r.GetBlob(ctx, s.ID)
	if err != nil {
		return "", fmt.Errorf("load blob %s: %w", s.ID, err)
	}
	return string(data), nil
}

func sideName(prefix string, s Side) string {
	if !s.Exists() {
		return "/dev/null"
	}
	return prefix + s.Path
}

// splitLines splits s after each newline without inventing a trailing empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
