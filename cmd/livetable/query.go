package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	livetable "github.com/kailas-cloud/livetable/pkg/sdk"
)

type queryFlags struct {
	seedFile   string
	valkey     string
	password   string
	keyPrefix  string
	sourcePath string
	idColumn   string
	watch      bool
}

func queryCmd() *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query [file]",
		Short: "Evaluate a JSON table query and print the result",
		Long: `Evaluates a JSON table query against a seed file or a Valkey corpus.
The query is read from the given file, or from stdin when no file is given.
With --watch the table is redrawn whenever the corpus changes, until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readQuery(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runQuery(cmd.Context(), f, raw)
		},
	}

	cmd.Flags().StringVar(&f.seedFile, "seed", "", "YAML seed file with the corpus")
	cmd.Flags().StringVar(&f.valkey, "valkey", "", "Valkey address holding the corpus")
	cmd.Flags().StringVar(&f.password, "password", "", "Valkey password")
	cmd.Flags().StringVar(&f.keyPrefix, "key-prefix", "", "Valkey key prefix")
	cmd.Flags().StringVar(&f.sourcePath, "source-path", "", "path of the document the query belongs to")
	cmd.Flags().StringVar(&f.idColumn, "id-column", "", "heading of the implicit document column")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "keep the table live and redraw on every change")
	return cmd
}

func readQuery(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read query from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}
	return raw, nil
}

func runQuery(ctx context.Context, f queryFlags, raw []byte) error {
	q, err := livetable.ParseQuery(raw)
	if err != nil {
		return err
	}

	var opts []livetable.Option
	if f.seedFile != "" {
		opts = append(opts, livetable.WithSeedFile(f.seedFile))
	}
	if f.valkey != "" {
		opts = append(opts, livetable.WithValkey(f.valkey, f.password))
	}
	if f.keyPrefix != "" {
		opts = append(opts, livetable.WithKeyPrefix(f.keyPrefix))
	}
	if f.idColumn != "" {
		opts = append(opts, livetable.WithIDColumnName(f.idColumn))
	}

	client, err := livetable.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	if !f.watch {
		st := client.Execute(ctx, q, f.sourcePath)
		out, err := renderState(st, client.Notice(st))
		if err != nil {
			return err
		}
		fmt.Print(out)
		if st.Status() == livetable.StatusError {
			return errors.New("query failed")
		}
		return nil
	}

	return watchQuery(ctx, client, q, f.sourcePath)
}

func watchQuery(ctx context.Context, client *livetable.Client, q livetable.Query, sourcePath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := client.Open(q, sourcePath)
	if err != nil {
		return err
	}
	defer func() { _ = v.Close() }()

	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return fmt.Errorf("start output area: %w", err)
	}
	defer func() { _ = area.Stop() }()

	err = v.Watch(ctx, func(st livetable.State) {
		out, rerr := renderState(st, client.Notice(st))
		if rerr != nil {
			out = pterm.Error.Sprintln(rerr)
		}
		area.Update(out)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// renderState formats st as a terminal table, followed by the notice if any.
func renderState(st livetable.State, notice string) (string, error) {
	switch st.Status() {
	case livetable.StatusLoading:
		return pterm.Info.Sprintln("Loading..."), nil
	case livetable.StatusError:
		return pterm.Error.Sprintln(st.Error()), nil
	}

	data := pterm.TableData{st.Headings()}
	for _, row := range st.Values() {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = livetable.Display(v)
		}
		data = append(data, cells)
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	out += "\n"
	if notice != "" {
		out += pterm.Info.Sprintln(notice)
	}
	out += pterm.Gray(fmt.Sprintf("version %d, %d rows", st.Version(), st.Rows())) + "\n"
	return out, nil
}
