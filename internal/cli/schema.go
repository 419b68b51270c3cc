package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/darianrosebrook/sterling/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:     "schema",
	Short:   "Manage the claim schema registry",
	GroupID: "core",
}

var schemaRegisterCmd = &cobra.Command{
	Use:   "register <file.yaml>",
	Short: "Register a new schema definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := readSchemaFile(args[0])
		if err != nil {
			fatal(err)
		}
		out, err := env.SchemaRegister(*def)
		if err != nil {
			fatal(err)
		}
		render(out, func() { fmt.Printf("registered %s\n", out.SchemaID) })
	},
}

var schemaGetCmd = &cobra.Command{
	Use:   "get <schema_id>",
	Short: "Show the current generation of a schema",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := env.SchemaGet(args[0])
		if err != nil {
			fatal(err)
		}
		render(def, func() { fmt.Printf("%s  kind=%s  slots=%d\n", def.SchemaID, def.Kind, len(def.Slots)) })
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered schema",
	Run: func(cmd *cobra.Command, args []string) {
		defs, err := env.SchemaList()
		if err != nil {
			fatal(err)
		}
		render(defs, func() {
			for _, d := range defs {
				fmt.Printf("%s  kind=%s  slots=%d\n", d.SchemaID, d.Kind, len(d.Slots))
			}
		})
	},
}

// migrationFile is the on-disk YAML shape for `schema migrate`, kept
// separate from schema.MigrationDescriptor because that type carries no
// yaml tags of its own (it is an in-memory call argument, not a
// serialized artifact).
type migrationFile struct {
	NewDef          schema.SchemaDef          `yaml:"new_def"`
	MigrationPolicy schema.MigrationPolicy    `yaml:"migration_policy"`
}

var schemaMigrateCmd = &cobra.Command{
	Use:   "migrate <schema_id> <file.yaml>",
	Short: "Migrate a schema to a new generation",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			fatal(fmt.Errorf("cli: reading migration file: %w", err))
		}
		var mf migrationFile
		if err := yaml.Unmarshal(raw, &mf); err != nil {
			fatal(fmt.Errorf("cli: parsing migration file: %w", err))
		}
		desc := schema.MigrationDescriptor{NewDef: mf.NewDef, MigrationPolicy: mf.MigrationPolicy}
		out, err := env.SchemaMigrate(args[0], desc)
		if err != nil {
			fatal(err)
		}
		render(out, func() { fmt.Printf("migrated %s\n", out.SchemaID) })
	},
}

func readSchemaFile(path string) (*schema.SchemaDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: reading schema file: %w", err)
	}
	var def schema.SchemaDef
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("cli: parsing schema file: %w", err)
	}
	return &def, nil
}

func init() {
	schemaCmd.AddCommand(schemaRegisterCmd, schemaGetCmd, schemaListCmd, schemaMigrateCmd)
}
