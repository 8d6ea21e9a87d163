package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/binlift/bin2ir/internal/config"
	"github.com/binlift/bin2ir/internal/decodecache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the decode cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the decode cache directory",
	RunE:  runCacheClear,
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect <image-file>",
	Short: "Show the cached entry for an image, if any",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInspect,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInspectCmd)
}

func loadedCacheDir() (string, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return "", err
	}
	if v := viper.GetString("cache_dir"); v != "" {
		cfg.CacheDir = v
	}
	return cfg.CacheDir, nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	dir, err := loadedCacheDir()
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing decode cache at %s: %w", dir, err)
	}
	fmt.Printf("cleared decode cache at %s\n", dir)
	return nil
}

func runCacheInspect(cmd *cobra.Command, args []string) error {
	dir, err := loadedCacheDir()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	cache, err := decodecache.Open(dir)
	if err != nil {
		return fmt.Errorf("opening decode cache at %s: %w", dir, err)
	}
	defer cache.Close()

	hash := decodecache.KeyForImage(raw)
	entry, ok := cache.Get(hash)
	if !ok {
		fmt.Printf("no cache entry for %s (key %s)\n", args[0], hash)
		return nil
	}
	fmt.Printf("cache entry for %s (key %s): %d functions, %d slots, fresh=%v\n",
		args[0], hash, len(entry.Functions), len(entry.Slots), entry.Fresh(len(raw)))
	return nil
}
