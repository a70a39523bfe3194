package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
)

// NewSchemaCmd creates the schema subcommand: print the canonical JSON
// Schema for the ShadowJson action tree, for editor tooling and as
// documentation of the additionalProperties:false wire shape (spec.md §6).
// This is advisory only — the hot-path parser in internal/action never
// consults it, since schema validation rejects a document wholesale, which
// would defeat the total/best-effort parsing spec.md §4.1 requires.
func NewSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "schema",
		Short:        "Print the JSON Schema for a ShadowJson action tree",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(actionTreeSchema()); err != nil {
				return fmt.Errorf("encoding schema: %w", err)
			}
			return nil
		},
	}
	return cmd
}

// falseSchema returns a schema that validates nothing, the JSON Schema
// idiom for additionalProperties:false.
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// actionTreeSchema builds the JSON Schema for the root document (a JSON
// array of Action) and its nested $defs, mirroring internal/action's wire
// types exactly.
func actionTreeSchema() *jsonschema.Schema {
	editOp := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"op":    {Type: "string", Enum: []any{"upsert", "delete", "match_replace"}},
			"val":   {Type: "string"},
			"match": {Type: "string"},
		},
		Required: []string{"op"},
	}

	editSpec := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"attrs":   {Type: "object", AdditionalProperties: &jsonschema.Schema{Ref: "#/$defs/EditOp"}},
			"content": {Ref: "#/$defs/EditOp"},
		},
	}

	valueSource := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"source": {Type: "string", Enum: []any{"Attribute", "Contents", "Value"}},
			"name":   {Type: "string"},
		},
		Required: []string{"source"},
	}

	dataSpec := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"path":   {Type: "string"},
			"values": {Type: "object", AdditionalProperties: &jsonschema.Schema{Ref: "#/$defs/ValueSource"}},
		},
	}

	stringArray := &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}

	action := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"s":             {Type: "string"},
			"hide":          {Type: "boolean"},
			"delete":        {Type: "boolean"},
			"edit":          {Ref: "#/$defs/EditSpec"},
			"data":          {Ref: "#/$defs/DataSpec"},
			"append":        stringArray,
			"prepend":       stringArray,
			"insert_before": stringArray,
			"insert_after":  stringArray,
			"sub":           {Type: "array", Items: &jsonschema.Schema{Ref: "#/$defs/Action"}},
		},
		Required: []string{"s"},
	}

	return &jsonschema.Schema{
		Title:       "ShadowJson action tree",
		Description: "A JSON array of Action nodes, each scoped to the compiled selector of its parent.",
		Type:        "array",
		Items:       &jsonschema.Schema{Ref: "#/$defs/Action"},
		Defs: map[string]*jsonschema.Schema{
			"Action":      action,
			"EditSpec":    editSpec,
			"EditOp":      editOp,
			"DataSpec":    dataSpec,
			"ValueSource": valueSource,
		},
	}
}
