package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

var (
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed)
	recountColor = color.New(color.FgMagenta)
	dimColor     = color.New(color.Faint)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusLabel(s model.ItemStatus) string {
	switch s {
	case model.ItemVerified:
		return okColor.Sprint(s)
	case model.ItemPendingApproval:
		return warnColor.Sprint(s)
	case model.ItemConflict:
		return errColor.Sprint(s)
	case model.ItemAssignedRecount:
		return recountColor.Sprint(s)
	}
	return dimColor.Sprint(s)
}

func severityLabel(s model.Severity) string {
	switch s {
	case model.SeverityHigh:
		return errColor.Sprint(s)
	case model.SeverityMedium:
		return warnColor.Sprint(s)
	}
	return string(s)
}

func printItem(w io.Writer, it model.Item) {
	fmt.Fprintf(w, "%-12s %-24s system=%-6g observed=%-6g v%-3d %s\n",
		it.SKU, it.Name, it.SystemQty, it.ObservedQty, it.Version, statusLabel(it.Status))
}

func printAlert(w io.Writer, a *model.Alert) {
	if a == nil {
		return
	}
	c := warnColor
	if a.Kind == model.AlertConflict {
		c = errColor
	}
	fmt.Fprintln(w, c.Sprint(a.Message))
}
