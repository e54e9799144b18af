package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/domain"
	"sigs.k8s.io/yaml"
)

// printValue writes v in the selected output format. In text mode strings
// are printed as-is and everything else as indented JSON.
func (a *app) printValue(w io.Writer, v any) error {
	switch a.output {
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case "text":
		if s, ok := v.(string); ok {
			_, err := fmt.Fprintln(w, s)
			return err
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printOK prints the booleanized view of an outcome. A false result is also
// the command's exit status.
func printOK[T any](cmd *cobra.Command, op string, o domain.Outcome[T]) error {
	fmt.Fprintln(cmd.OutOrStdout(), o.OK())
	if !o.OK() {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

// printMessage prints the stringified view of an outcome.
func printMessage[T any](cmd *cobra.Command, msg string, o domain.Outcome[T]) error {
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	if !o.OK() {
		return o.Err()
	}
	return nil
}
