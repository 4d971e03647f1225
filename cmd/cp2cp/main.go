// Command cp2cp converts between ChainPack and Cpon.
//
// By default it reads ChainPack from stdin (or a file argument) and writes
// Cpon to stdout. --ip treats the input as Cpon, --oc emits ChainPack,
// --indent pretty-prints Cpon output. Defaults can come from a TOML config
// file. The journal subcommand dumps a recorded frame journal as Cpon.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/BurntSushi/toml"
	mmap "github.com/edsrzf/mmap-go"
	"github.com/spf13/cobra"

	"github.com/silicon-heaven/shvproto-go/chainpack"
	"github.com/silicon-heaven/shvproto-go/cpon"
	"github.com/silicon-heaven/shvproto-go/journal"
	"github.com/silicon-heaven/shvproto-go/rpcmessage"
	"github.com/silicon-heaven/shvproto-go/rpcvalue"
)

type config struct {
	Indent          string `toml:"indent"`
	CponInput       bool   `toml:"cpon_input"`
	ChainPackOutput bool   `toml:"chainpack_output"`
}

var (
	flagIndent     string
	flagCponInput  bool
	flagCpkOutput  bool
	flagConfigPath string
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("cp2cp: ")

	rootCmd := &cobra.Command{
		Use:          "cp2cp [flags] [FILE]",
		Short:        "ChainPack to Cpon and back utility",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runConvert,
	}
	rootCmd.PersistentFlags().StringVarP(&flagIndent, "indent", "i", "", "Cpon indentation string")
	rootCmd.Flags().BoolVar(&flagCponInput, "ip", false, "Cpon input")
	rootCmd.Flags().BoolVar(&flagCpkOutput, "oc", false, "ChainPack output")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "TOML config file with option defaults")

	journalCmd := &cobra.Command{
		Use:          "journal FILE",
		Short:        "Dump a recorded frame journal as Cpon",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runJournal,
	}
	rootCmd.AddCommand(journalCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges config file defaults under the explicitly set flags.
func loadConfig(cmd *cobra.Command) error {
	if flagConfigPath == "" {
		return nil
	}
	var cfg config
	if _, err := toml.DecodeFile(flagConfigPath, &cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !cmd.Flags().Changed("indent") {
		flagIndent = cfg.Indent
	}
	if !cmd.Flags().Changed("ip") {
		flagCponInput = cfg.CponInput
	}
	if !cmd.Flags().Changed("oc") {
		flagCpkOutput = cfg.ChainPackOutput
	}

	return nil
}

// openInput returns a reader over the file argument, memory-mapped when
// possible, or stdin when no file is given. The cleanup function must be
// called after reading.
func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		// mapping can fail on pipes and empty files; fall back to plain reads
		return bufio.NewReader(f), func() { f.Close() }, nil
	}

	return bytes.NewReader(m), func() { m.Unmap(); f.Close() }, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}

	in, cleanup, err := openInput(args)
	if err != nil {
		return err
	}
	defer cleanup()

	var rv rpcvalue.RpcValue
	if flagCponInput {
		rv, err = cpon.NewReader(in).Read()
	} else {
		rv, err = chainpack.NewReader(in).Read()
	}
	if err != nil {
		log.Printf("parse input error: %v", err)
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	if flagCpkOutput {
		err = chainpack.NewWriter(out).Write(rv)
	} else {
		wr := cpon.NewWriter(out)
		if flagIndent == `\t` {
			wr.SetIndent("\t")
		} else {
			wr.SetIndent(flagIndent)
		}
		err = wr.Write(rv)
		if err == nil && flagIndent != "" {
			err = out.WriteByte('\n')
		}
	}
	if err != nil {
		log.Printf("write output error: %v", err)
		return err
	}

	return nil
}

func runJournal(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	jr := journal.NewReader(bufio.NewReader(f))
	for n := 0; ; n++ {
		frame, err := jr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Printf("journal record %d: %v", n, err)
			return err
		}
		_, fr, err := rpcmessage.ParseFrame(frame)
		if err != nil || fr == nil {
			log.Printf("journal record %d: invalid frame: %v", n, err)
			return fmt.Errorf("invalid frame in record %d", n)
		}
		msg, err := fr.ToMessage()
		if err != nil {
			log.Printf("journal record %d: %v", n, err)
			return err
		}
		text, err := cpon.ToCponIndented(msg.AsRpcValue(), flagIndent)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, text); err != nil {
			return err
		}
	}
}
