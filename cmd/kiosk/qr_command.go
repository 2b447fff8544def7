package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

func newQRCommand(ctx *commandContext) *cobra.Command {
	var output string
	var size int
	cmd := &cobra.Command{
		Use:   "qr [url]",
		Short: "Print a QR code for the display page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := cfg.DisplayURL()
			if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
				target = strings.TrimSpace(args[0])
			}
			out := cmd.OutOrStdout()
			if output != "" {
				png, err := qrcode.Encode(target, qrcode.Medium, size)
				if err != nil {
					return fmt.Errorf("encode qr code: %w", err)
				}
				if err := os.WriteFile(output, png, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(out, "Wrote QR code for %s to %s\n", target, output)
				return nil
			}
			code, err := qrcode.New(target, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("encode qr code: %w", err)
			}
			fmt.Fprint(out, code.ToSmallString(false))
			fmt.Fprintln(out, target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write a PNG instead of printing to the terminal")
	cmd.Flags().IntVar(&size, "size", 256, "PNG size in pixels")
	return cmd
}
