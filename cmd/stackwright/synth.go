package main

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stackwright/stackwright/pkg/appdef"
	"github.com/stackwright/stackwright/pkg/synth"
)

func newSynthCmd() *cobra.Command {
	var cfg struct {
		file   string
		outDir string
		format string
	}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize an app definition into templates and a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zap.S()

			data, err := os.ReadFile(cfg.file)
			if err != nil {
				return pkgerrors.Wrapf(err, "could not read app definition %s", cfg.file)
			}
			def, err := appdef.Parse(data)
			if err != nil {
				return err
			}
			app, err := def.Build()
			if err != nil {
				return err
			}

			asm, err := synth.Synthesize(app, synth.Options{Format: cfg.format})
			if err != nil {
				return err
			}
			if err := asm.Write(cfg.outDir); err != nil {
				return err
			}

			for _, artifact := range asm.Manifest.Stacks {
				log.Infof("wrote %s (%s/%s)", artifact.TemplateFile, artifact.Account, artifact.Region)
			}
			log.Infof("assembly %s written to %s", asm.Manifest.ID, cfg.outDir)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.file, "file", "f", "stackwright.yaml", "App definition file")
	flags.StringVarP(&cfg.outDir, "out", "o", "stackwright.out", "Assembly output directory")
	flags.StringVar(&cfg.format, "format", "yaml", "Template format (yaml, json)")
	return cmd
}
