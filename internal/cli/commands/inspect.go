package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/grimoire-wiki/grimoire/internal/cli/ui"
	"github.com/grimoire-wiki/grimoire/internal/orm/crud"
	"github.com/grimoire-wiki/grimoire/internal/orm/metadata"
	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
)

// withApp opens the app, runs fn and closes it
func withApp(global *globalOptions, fn func(a *app) error) error {
	a, err := openApp(global)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newTypesCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(global, func(a *app) error {
				table := ui.NewTable(cmd.OutOrStdout(), global.noColor, "TYPE", "MODEL", "TABLE", "FIELDS", "RELATIONSHIPS")
				for _, entity := range a.registry.Types() {
					table.AddRow(entity.Name, entity.Model, entity.Table,
						strconv.Itoa(len(entity.ValueFields())),
						strconv.Itoa(len(entity.VisibleRelationships())))
				}
				table.Render()
				return nil
			})
		},
	}
}

func newSchemaCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <type>",
		Short: "Describe the fields of an entity type",
		Long: `Describe every field and relationship of an entity type in the order
the API reports them, with enum labels and the current choices of
relationship targets.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(global, func(a *app) error {
				descriptors, err := a.engine.Schema(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				table := ui.NewTable(cmd.OutOrStdout(), global.noColor, "NAME", "TYPE", "NULLABLE", "TARGET", "CHOICES")
				for _, d := range descriptors {
					kind := string(d.Type)
					if d.RelationshipType != "" {
						kind += " (" + d.RelationshipType + ")"
					}
					table.AddRow(d.Name, kind, yesNo(d.Nullable), target(d), choices(d))
				}
				table.Render()
				return nil
			})
		},
	}
}

func newListCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List the instances of an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(global, func(a *app) error {
				refs, err := a.engine.List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(refs) == 0 {
					printer(cmd, global).Info("no %s entries", args[0])
					return nil
				}

				table := ui.NewTable(cmd.OutOrStdout(), global.noColor, "ID", "LABEL")
				for _, ref := range refs {
					table.AddRow(strconv.FormatInt(ref.ID, 10), ref.Label)
				}
				table.Render()
				return nil
			})
		},
	}
}

func newShowCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <type> <id|name>",
		Short: "Show one instance",
		Long: `Show one instance by numeric id, or by name: the name is matched against
the slug (or the name or title column) ignoring case and punctuation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(global, func(a *app) error {
				var (
					record crud.Record
					err    error
				)
				if id, convErr := strconv.ParseInt(args[1], 10, 64); convErr == nil {
					record, err = a.engine.Get(cmd.Context(), args[0], id)
				} else {
					record, err = a.engine.FindByName(cmd.Context(), args[0], args[1])
				}
				if err != nil {
					return err
				}

				kv := ui.NewKeyValueTable(cmd.OutOrStdout(), global.noColor)
				for _, e := range record {
					kv.AddRow(e.Name, formatValue(e.Value))
				}
				kv.Render()
				return nil
			})
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func target(d metadata.Descriptor) string {
	if !d.References() {
		return ""
	}
	if d.RefModel != nil {
		return *d.RefModel
	}
	return d.RefTable
}

func choices(d metadata.Descriptor) string {
	switch c := d.Choices().(type) {
	case []string:
		return strings.Join(c, ", ")
	case []schema.Ref:
		return formatRefs(c)
	}
	return ""
}

func formatRefs(refs []schema.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = fmt.Sprintf("%s (#%d)", r.Label, r.ID)
	}
	return strings.Join(parts, ", ")
}

// formatValue renders a record value for the terminal
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.RFC3339)
	case []schema.Ref:
		return formatRefs(val)
	case *schema.Ref:
		if val == nil {
			return ""
		}
		return formatRefs([]schema.Ref{*val})
	}
	return cast.ToString(v)
}
