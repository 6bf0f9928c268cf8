package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/goodtune/listenstats/internal/config"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the listenstats configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with non-default values highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		_, _ = red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		if err := dumpConfig(os.Stdout, cfg, config.Defaults()); err != nil {
			return err
		}
	}

	return nil
}

// findUnknownKeys reads the config file and returns the keys that have no
// default, and therefore no field in config.Config.
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	defaults, err := config.Viper("")
	if err != nil {
		return nil, err
	}
	valid := make(map[string]bool)
	for _, key := range defaults.AllKeys() {
		valid[key] = true
	}

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !valid[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

// setting is one leaf of the configuration rendered as YAML.
type setting struct {
	section string
	key     string
	value   string
}

// flattenConfig renders cfg as YAML and returns its leaves in document order.
func flattenConfig(cfg *config.Config) ([]setting, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("unexpected configuration layout")
	}

	var out []setting
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		section, body := root.Content[i].Value, root.Content[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			v, err := renderNode(body.Content[j+1])
			if err != nil {
				return nil, err
			}
			out = append(out, setting{section: section, key: body.Content[j].Value, value: v})
		}
	}
	return out, nil
}

func renderNode(n *yaml.Node) (string, error) {
	if n.Kind == yaml.ScalarNode {
		return n.Value, nil
	}
	n.Style = yaml.FlowStyle
	data, err := yaml.Marshal(n)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// dumpConfig prints cfg section by section, highlighting values that differ
// from defaults.
func dumpConfig(w io.Writer, cfg, defaultCfg *config.Config) error {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	current, err := flattenConfig(cfg)
	if err != nil {
		return err
	}
	defaults, err := flattenConfig(defaultCfg)
	if err != nil {
		return err
	}
	defaultValues := make(map[string]string, len(defaults))
	for _, s := range defaults {
		defaultValues[s.section+"."+s.key] = s.value
	}

	section := ""
	for _, s := range current {
		if s.section != section {
			section = s.section
			_, _ = cyan.Fprintf(w, "\n[%s]\n", section)
		}
		value, def := s.value, defaultValues[s.section+"."+s.key]
		if s.section == "redis" && s.key == "password" {
			value, def = redactPassword(value), redactPassword(def)
		}
		if value == def {
			_, _ = green.Fprintf(w, "  %s = %s\n", s.key, value)
		} else {
			_, _ = yellow.Fprintf(w, "  %s = %s  (modified from default: %s)\n", s.key, value, def)
		}
	}

	_, _ = fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	return nil
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
