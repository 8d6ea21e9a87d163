package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/binlift/bin2ir/internal/abi"
	"github.com/binlift/bin2ir/internal/addr"
	"github.com/binlift/bin2ir/internal/cfgdump"
	"github.com/binlift/bin2ir/internal/config"
	"github.com/binlift/bin2ir/internal/debuginfo"
	"github.com/binlift/bin2ir/internal/decodecache"
	"github.com/binlift/bin2ir/internal/decoder"
	"github.com/binlift/bin2ir/internal/image"
	"github.com/binlift/bin2ir/internal/stackpass"
	"github.com/binlift/bin2ir/internal/translator"
)

var (
	decodeEntry  uint64
	decodeBase   uint64
	decodeFormat string
	decodeSPName string
	decodeWidth  int
	decodeNoCache bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <image-file>",
	Short: "Decode a raw binary image into a CFG and reconstructed stack variables",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().Uint64Var(&decodeEntry, "entry", 0, "entry point address")
	decodeCmd.Flags().Uint64Var(&decodeBase, "base", 0, "load address of the image's first byte")
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "json", "output format: json|dot")
	decodeCmd.Flags().StringVar(&decodeSPName, "sp-register", "SP", "name of the stack-pointer register leaf")
	decodeCmd.Flags().IntVar(&decodeWidth, "pointer-width", 64, "pointer width in bits")
	decodeCmd.Flags().BoolVar(&decodeNoCache, "no-cache", false, "skip the decode cache")
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if v := viper.GetString("cache_dir"); v != "" {
		cfg.CacheDir = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	setupLogging(cfg.LogLevel)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	var cache *decodecache.Cache
	if !decodeNoCache {
		cache, err = decodecache.Open(cfg.CacheDir)
		if err != nil {
			log.Warn("decode: failed to open decode cache, continuing without it", "err", err)
		} else {
			defer cache.Close()
		}
	}

	var hash common.Hash
	if cache != nil {
		hash = decodecache.KeyForImage(raw)
		if entry, ok := cache.Get(hash); ok && entry.Fresh(len(raw)) {
			log.Info("decode: serving cached CFG dump", "key", hash, "functions", len(entry.Functions))
			return emitDump(entry.JSON, entry.DOT, decodeFormat)
		}
	}

	img := image.NewFlat(addr.Address(decodeBase), raw)
	abiCtx := abi.NewGeneric(decodeSPName, decodeWidth)
	dbg := debuginfo.NewFake()

	allowed := addr.NewSet(addr.NewRange(addr.Address(decodeBase), addr.Address(decodeBase).Add(uint64(len(raw)))))
	dec := decoder.New(img, translator.Noop{}, abiCtx, dbg, allowed, addr.NewSet(), addr.Address(decodeEntry), nil)

	if _, err := dec.Run(cfg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if _, err := stackpass.Run(dec.Module(), abiCtx, dbg); err != nil {
		return fmt.Errorf("stack pass: %w", err)
	}

	jsonData, err := cfgdump.DumpJSON(dec.Module())
	if err != nil {
		return fmt.Errorf("marshaling CFG dump: %w", err)
	}
	dotData := cfgdump.DumpDOT(dec.Module())

	if cache != nil {
		cache.Put(hash, snapshotOf(dec, raw, jsonData, dotData))
	}

	return emitDump(jsonData, dotData, decodeFormat)
}

func emitDump(jsonData []byte, dotData string, format string) error {
	switch format {
	case "dot":
		fmt.Println(dotData)
	default:
		fmt.Println(string(jsonData))
	}
	return nil
}

func snapshotOf(dec *decoder.Decoder, raw []byte, jsonData []byte, dotData string) decodecache.Entry {
	e := decodecache.Entry{ImageLength: int64(len(raw)), JSON: jsonData, DOT: dotData}
	for _, f := range dec.Module().Functions() {
		if !f.Address().Defined() {
			continue
		}
		e.Functions = append(e.Functions, decodecache.FunctionSnapshot{
			Address:    uint64(f.Address()),
			AddressEnd: uint64(f.LastInstructionAddress()),
		})
	}
	return e
}
