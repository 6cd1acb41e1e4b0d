package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/kolah/sdkprep/internal/model"
	"github.com/kolah/sdkprep/internal/naming"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = "sdkprep.yaml"

// DefaultBaseURL is a placeholder. Real runs set descriptions.base-url.
const DefaultBaseURL = "https://docs.example.com/api"

type Config struct {
	Input         string             `koanf:"input"`
	Output        string             `koanf:"output"`
	LogLevel      string             `koanf:"log-level"`
	DryRun        bool               `koanf:"dry-run"`
	Fixups        []Fixup            `koanf:"fixups"`
	Naming        NamingConfig       `koanf:"naming"`
	RouteVariants [][]string         `koanf:"route-variants"`
	ReturnTypes   ReturnTypesConfig  `koanf:"return-types"`
	Descriptions  DescriptionsConfig `koanf:"descriptions"`
	Patches       PatchesConfig      `koanf:"patches"`
	Guards        []Guard            `koanf:"guards"`
	Internal      InternalConfig     `koanf:"internal"`
	Serializer    SerializerConfig   `koanf:"serializer"`
}

type Fixup struct {
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

type NamingConfig struct {
	// Acronyms extend the built-in substitution table.
	Acronyms map[string]string `koanf:"acronyms"`
}

type ReturnTypesConfig struct {
	PaginationMetaKeys []string `koanf:"pagination-meta-keys"`
}

type DescriptionsConfig struct {
	BaseURL        string `koanf:"base-url"`
	Width          int    `koanf:"width"`
	ParameterWidth int    `koanf:"parameter-width"`
}

type PatchesConfig struct {
	Add    []AddPatch    `koanf:"add"`
	Remove []RemovePatch `koanf:"remove"`
}

// AddPatch inserts the fragment in File at Path. Without Method the
// fragment is a whole path item.
type AddPatch struct {
	Path   string `koanf:"path"`
	Method string `koanf:"method"`
	File   string `koanf:"file"`
}

type RemovePatch struct {
	Path   string `koanf:"path"`
	Method string `koanf:"method"`
}

type Guard struct {
	Name     string `koanf:"name"`
	Query    string `koanf:"query"`
	Function string `koanf:"function"`
	Message  string `koanf:"message"`
}

type InternalConfig struct {
	PathPrefixes     []string          `koanf:"path-prefixes"`
	OperationRenames map[string]string `koanf:"operation-renames"`
}

type SerializerConfig struct {
	EmptyArrayKeys []string `koanf:"empty-array-keys"`
	Indent         int      `koanf:"indent"`
}

// Default returns the built-in settings. Fields left unset by the config
// file and flags are filled from here.
func Default() Config {
	return Config{
		Input:    "openapi.json",
		LogLevel: "info",
		Fixups:   []Fixup{{From: "application/JSON", To: "application/json"}},
		Naming: NamingConfig{
			Acronyms: maps.Clone(naming.DefaultAcronyms),
		},
		ReturnTypes: ReturnTypesConfig{
			PaginationMetaKeys: []string{"meta", "links"},
		},
		Descriptions: DescriptionsConfig{
			BaseURL:        DefaultBaseURL,
			Width:          100,
			ParameterWidth: 80,
		},
		Serializer: SerializerConfig{
			EmptyArrayKeys: []string{"security"},
			Indent:         4,
		},
	}
}

// BindCommonFlags binds flags shared by every subcommand.
func BindCommonFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: "+DefaultFile+")")
	flags.StringP("input", "i", "", "OpenAPI document to read (default: openapi.json)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (default: info)")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile, _ = cmd.PersistentFlags().GetString("config")
	}
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	if configFile != "" {
		cfg.resolvePatchFiles(filepath.Dir(configFile))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills every zero field from Default. Acronym maps are
// merged key by key.
func (c *Config) ApplyDefaults() error {
	if err := mergo.Merge(c, Default()); err != nil {
		return fmt.Errorf("applying defaults: %w", err)
	}
	return nil
}

// resolvePatchFiles makes fragment paths relative to the config file.
func (c *Config) resolvePatchFiles(dir string) {
	for i, p := range c.Patches.Add {
		if p.File != "" && !filepath.IsAbs(p.File) {
			c.Patches.Add[i].File = filepath.Join(dir, p.File)
		}
	}
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	flagChanged := func(name string) bool {
		return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
	}

	getBool := func(name string) bool {
		if v, err := cmd.Flags().GetBool(name); err == nil {
			return v
		}
		if v, err := cmd.PersistentFlags().GetBool(name); err == nil {
			return v
		}
		return false
	}

	getInt := func(name string) int {
		if v, err := cmd.Flags().GetInt(name); err == nil {
			return v
		}
		return 0
	}

	if v := getString("input"); v != "" {
		m["input"] = v
	}
	if v := getString("output"); v != "" {
		m["output"] = v
	}
	if v := getString("log-level"); v != "" {
		m["log-level"] = v
	}
	if flagChanged("dry-run") {
		m["dry-run"] = getBool("dry-run")
	}
	if v := getString("base-url"); v != "" {
		m["descriptions.base-url"] = v
	}
	if flagChanged("width") {
		m["descriptions.width"] = getInt("width")
	}

	return m
}

// Warnings lists settings that are valid but most likely unintended.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Descriptions.BaseURL == DefaultBaseURL {
		warnings = append(warnings, fmt.Sprintf(
			"descriptions.base-url is not set; description links will point at the placeholder %s", DefaultBaseURL))
	}
	return warnings
}

// OutputPath returns the configured output, or <stem>.sdk.json next to the input.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	dir, base := filepath.Split(c.Input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+".sdk.json")
}

func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input file is required")
	}
	if c.Descriptions.Width <= 0 || c.Descriptions.ParameterWidth <= 0 {
		return fmt.Errorf("description widths must be positive (width: %d, parameter-width: %d)",
			c.Descriptions.Width, c.Descriptions.ParameterWidth)
	}
	if c.Serializer.Indent < 0 {
		return fmt.Errorf("invalid serializer indent: %d", c.Serializer.Indent)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}
	if a, b, ok := naming.CheckAcronyms(c.Naming.Acronyms); !ok {
		return fmt.Errorf("overlapping acronyms: %q and %q", a, b)
	}

	for i, group := range c.RouteVariants {
		if len(group) < 2 {
			return fmt.Errorf("route-variants[%d]: a group needs at least two schemas", i)
		}
		for _, name := range group {
			if name == "" {
				return fmt.Errorf("route-variants[%d]: empty schema name", i)
			}
		}
	}

	for i, p := range c.Patches.Add {
		if p.Path == "" || p.File == "" {
			return fmt.Errorf("patches.add[%d]: path and file are required", i)
		}
		if p.Method != "" && !model.IsMethod(p.Method) {
			return fmt.Errorf("patches.add[%d]: invalid method: %s", i, p.Method)
		}
	}
	for i, p := range c.Patches.Remove {
		if p.Path == "" || !model.IsMethod(p.Method) {
			return fmt.Errorf("patches.remove[%d]: path and a valid method are required", i)
		}
	}

	for i, g := range c.Guards {
		if g.Name == "" || g.Query == "" {
			return fmt.Errorf("guards[%d]: name and query are required", i)
		}
	}

	for from, to := range c.Internal.OperationRenames {
		if from == "" || to == "" {
			return fmt.Errorf("internal.operation-renames: empty operationId in %q -> %q", from, to)
		}
	}

	return nil
}
