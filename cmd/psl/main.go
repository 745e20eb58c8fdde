package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/psl/pkg/psl"
	"github.com/cognicore/psl/pkg/psl/config"
)

var (
	configPath string
	modelPath  string
	jsonOutput bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "psl",
	Short:         "Ground PSL models and compile them into constraint blocks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// blockCmd grounds a model and prints its block partition.
//
//	psl block --model model.yaml
//	psl block --config psl.yaml --model model.yaml --json
var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Ground a model and print the constraint-block partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBlock(cmd.Context(), cmd.OutOrStdout())
	},
}

// validateCmd parses a model without touching any database.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a model file is well formed",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := config.LoadModel(modelPath)
		if err != nil {
			return err
		}
		prog, err := model.Program()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d predicates, %d rules and constraints, %d fixed atoms\n",
			len(model.Predicates), len(prog.Rules), len(prog.Fixed))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "Path to the model YAML file")
	_ = rootCmd.MarkPersistentFlagRequired("model")

	blockCmd.Flags().StringVar(&configPath, "config", "", "Path to the config YAML file (defaults apply when empty)")
	blockCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the partition as JSON")
	blockCmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort grounding and blocking after this long (0 = no limit)")

	rootCmd.AddCommand(blockCmd, validateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runBlock(ctx context.Context, out io.Writer) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	loader := config.Loader{ConfigPath: configPath, ModelPath: modelPath}
	comp, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	defer comp.Logger.Sync()

	engine := comp.PSL()
	defer engine.Close()

	result, err := engine.Run(ctx, comp.Program)
	if err != nil {
		comp.Logger.Error("blocking failed", zap.Error(err))
		return err
	}

	views := psl.Describe(result.Blocks)
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Generation  string          `json:"generation"`
			GroundRules int             `json:"ground_rules"`
			Blocks      []psl.BlockView `json:"blocks"`
		}{
			Generation:  result.Blocks.Generation().String(),
			GroundRules: result.GroundRules.Size(),
			Blocks:      views,
		})
	}

	fmt.Fprintf(out, "generation %s: %d ground rules, %d blocks\n",
		result.Blocks.Generation(), result.GroundRules.Size(), len(views))
	for i, v := range views {
		mode := "at-most-one"
		if v.ExactlyOne {
			mode = "exactly-one"
		}
		members := strings.Join(v.Atoms, ", ")
		if members == "" {
			members = "(empty)"
		}
		fmt.Fprintf(out, "  [%d] %s, %d incident: %s\n", i, mode, v.Incident, members)
	}
	return nil
}
