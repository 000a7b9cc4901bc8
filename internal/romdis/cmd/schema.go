package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// RomdisConfig represents configuration for the romdis tool.
type RomdisConfig struct {
	Arch       string `json:"arch" jsonschema:"title=Architecture,description=Target instruction set"`
	Entrypoint string `json:"entrypoint" jsonschema:"title=Entrypoint,description=Entry address or auto"`
	Format     string `json:"format" jsonschema:"title=Format,description=Instruction line template"`
	DataFormat string `json:"dataFormat" jsonschema:"title=Data Format,description=Data byte line template"`
	Debug      bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the romdis configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&RomdisConfig{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Println(string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
