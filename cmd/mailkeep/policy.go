package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mailkeep-hq/mailkeep/pkg/cli"
	"mailkeep-hq/mailkeep/pkg/config"
	"mailkeep-hq/mailkeep/pkg/policy"
	"mailkeep-hq/mailkeep/pkg/telemetry/logging"
)

var policyFlags struct {
	file   string
	output string
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage cleanup policies",
	Long:  `List cleanup policies or apply policy definitions from a YAML file.`,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cleanup policies",
	RunE:  runPolicyList,
}

var policyApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create or update policies from a YAML file",
	Long: `Apply policy definitions from a YAML file.

Definitions with an id update the existing policy; definitions without
one create a new policy.

Example policy file:

  policies:
    - name: archive-promotions
      enabled: true
      priority: 10
      criteria:
        categories: [low]
        min_age_days: 90
        min_staleness: 0.6
      action: archive
      schedule: "0 3 * * *"`,
	RunE: runPolicyApply,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyListCmd)
	policyCmd.AddCommand(policyApplyCmd)

	policyCmd.PersistentFlags().StringVarP(&policyFlags.output, "output", "o", "text", "output format (text, json)")
	policyApplyCmd.Flags().StringVarP(&policyFlags.file, "file", "f", "", "policy YAML file (required)")
	_ = policyApplyCmd.MarkFlagRequired("file")
}

// policyFile is the on-disk shape accepted by policy apply.
type policyFile struct {
	Policies []*policy.Policy `yaml:"policies"`
}

func openPolicyApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, _, err := logging.Setup(logging.Config{Level: level, Format: "text"})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	return buildApp(cmd.Context(), cfg, nil, logger)
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	a, err := openPolicyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	policies := a.registry.List()

	if policyFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, policies)
	}

	if len(policies) == 0 {
		fmt.Println("No policies configured")
		return nil
	}
	for _, p := range policies {
		state := "disabled"
		if p.Enabled {
			state = "enabled"
		}
		fmt.Printf("%-36s  %-24s  %-8s  priority=%d  runs=%d\n",
			p.ID, p.Name, state, p.Priority, p.RunStats.TotalRuns)
	}
	return nil
}

func runPolicyApply(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(policyFlags.file)
	if err != nil {
		return cli.NewCommandError("policy apply", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cli.NewCommandError("policy apply", fmt.Errorf("parsing %q: %w", policyFlags.file, err))
	}
	if len(file.Policies) == 0 {
		return cli.NewCommandError("policy apply", fmt.Errorf("no policies found in %q", policyFlags.file))
	}

	a, err := openPolicyApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	created, updated := 0, 0
	for _, p := range file.Policies {
		if p.ID == "" {
			if _, err := a.registry.Create(ctx, p); err != nil {
				return cli.NewCommandError("policy apply", fmt.Errorf("creating %q: %w", p.Name, err))
			}
			created++
			continue
		}
		if _, err := a.registry.Update(ctx, p); err != nil {
			return cli.NewCommandError("policy apply", fmt.Errorf("updating %q: %w", p.ID, err))
		}
		updated++
	}

	fmt.Printf("✓ Applied %d policies (%d created, %d updated)\n", created+updated, created, updated)
	return nil
}
