package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// terminal is the user-facing side of the controllers: it shows errors and
// asks for confirmations.
type terminal struct {
	runner *Runner
}

func (t *terminal) NotifyError(err error) {
	if err == nil {
		return
	}
	t.runner.logger.Warn("error shown", zap.Error(err))
	fmt.Fprintf(t.runner.out, "Error: %s\n", friendlyError(err))
}

func (t *terminal) Confirm(prompt string) bool {
	if t.runner.options.Yes {
		return true
	}
	answer, ok := t.ask(prompt + " [y/N] ")
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (t *terminal) ask(prompt string) (string, bool) {
	fmt.Fprint(t.runner.out, prompt)
	if !t.runner.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(t.runner.in.Text()), true
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRows prints rows starting at 1-based position from.
func (r *Runner) writeRows(header []string, rows [][]string, from int) {
	if from == 1 {
		fmt.Fprintf(r.out, "%-4s %s\n", "#", strings.Join(header, " | "))
	}
	for i, row := range rows {
		fmt.Fprintf(r.out, "%-4d %s\n", from+i, strings.Join(row, " | "))
	}
}

func (r *Runner) writeFields(fields [][2]string) {
	width := 0
	for _, f := range fields {
		if len(f[0]) > width {
			width = len(f[0])
		}
	}
	for _, f := range fields {
		value := f[1]
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		fmt.Fprintf(r.out, "%-*s  %s\n", width, f[0], value)
	}
}
