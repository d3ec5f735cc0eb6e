/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/romflash"
	"github.com/allbin/romflash/firmware"
	"github.com/allbin/romflash/internal/tui/models"
	"github.com/allbin/romflash/link"
)

// flashCmd represents the flash command
var flashCmd = &cobra.Command{
	Use:   "flash <image.bin>",
	Short: "Write an application image to the chip",
	Long: `Connect to the chip's ROM bootloader and write an application image at
0x10000, then reset the chip into the new firmware.

Without --port an interactive port chooser is shown. With --plain status
and progress are printed as lines and the first USB port is used.

Examples:
  romflash flash build/app.bin
  romflash flash build/app.bin --port /dev/ttyACM0
  romflash flash build/app.bin --plain --metrics-file /var/lib/node_exporter/romflash.prom`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := firmware.LoadImage(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signalContext(cmd)
		defer stop()

		if viper.GetBool("ui.plain") {
			return flashPlain(ctx, img)
		}
		return flashInteractive(ctx, img)
	},
}

func init() {
	rootCmd.AddCommand(flashCmd)
}

func flashPlain(ctx context.Context, img firmware.Image) error {
	e, err := setup(false)
	if err != nil {
		return err
	}
	defer e.close()

	s := e.newSession(e.chooser(), newPlainObserver())
	defer s.Close()

	out := connectAndFlash(ctx, s, img)
	return report(os.Stdout, out, img)
}

func flashInteractive(ctx context.Context, img firmware.Image) error {
	relay := &models.Relay{}
	e, err := setup(true, models.LogWriter(relay))
	if err != nil {
		return err
	}
	defer e.close()

	// The chooser and the flash view both need the terminal, so pick the
	// port before the view starts.
	port := e.cfg.Port
	if port == "" {
		infos, err := link.ListPortInfos()
		if err != nil {
			return err
		}
		port, err = models.Chooser(ctx, infos)
		if errors.Is(err, link.ErrSelectionCancelled) {
			fmt.Println("No port selected.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	s := e.newSession(link.FixedPort(port), relay)
	defer s.Close()

	m := models.NewFlashModel(ctx, models.FlashConfig{
		Title: "romflash " + img.Name,
		Port:  port,
		Image: img.String(),
		State: s.State,
		Run: func(ctx context.Context) models.DoneMsg {
			return connectAndFlash(ctx, s, img)
		},
	})
	p := tea.NewProgram(m, tea.WithContext(ctx))
	relay.Attach(p)

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	out := models.DoneMsg{Err: context.Canceled}
	if fm, ok := final.(models.FlashModel); ok {
		out = fm.Outcome()
	}
	return report(os.Stdout, out, img)
}

func connectAndFlash(ctx context.Context, s *romflash.Session, img firmware.Image) models.DoneMsg {
	chip, err := s.Connect(ctx)
	if err != nil || chip == "" {
		return models.DoneMsg{Err: err}
	}
	if !s.Ready(len(img.Data) > 0) {
		return models.DoneMsg{Chip: chip, Err: fmt.Errorf("not ready to flash %s: session is %s", img, s.State())}
	}
	res, err := s.Flash(ctx, img)
	if err != nil {
		return models.DoneMsg{Chip: chip, Err: err}
	}
	return models.DoneMsg{Chip: chip, Result: &res}
}

func report(w io.Writer, out models.DoneMsg, img firmware.Image) error {
	switch {
	case out.Err != nil:
		return out.Err
	case out.Result == nil:
		// cancelled selection, already reported by the session
		return nil
	}
	res := out.Result
	fmt.Fprintf(w, "Wrote %s to %s via %s in %s (%d chunks)\n",
		img, out.Chip, res.Strategy, res.Duration.Round(time.Millisecond), res.Chunks)
	if !res.Reset {
		fmt.Fprintln(w, "Reset the board to start the new firmware.")
	}
	return nil
}
