package saturn

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Config (ambient stack, SPEC_FULL.md §B): a flat "key = value" text file,
// one setting per line, '#' starts a comment. Grounded on
// rcornwell-S370's config/configparser/configparser.go, which reads the
// same shape of file for mainframe device config; adapted here to the
// handful of settings a Saturn host needs rather than a channel/unit
// table.
type Config struct {
	variant  *Variant
	ips      int
	maxBatch int
	t1Tick   int64
	t2Tick   int64
	contrast int
}

func defaultConfig() Config {
	return Config{ips: targetIPS, maxBatch: maxBatch}
}

// loadConfig reads path and applies recognized keys over the defaults.
// Unrecognized keys are ignored with a warning rather than treated as a
// hard error, since a config file is host convenience, not a contract.
func loadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrIoRead, path, err)
	}
	defer f.Close()

	cfg := defaultConfig()
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("saturn: %s:%d: missing '='", path, lineNo)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		applyConfigKey(&cfg, key, value)
	}
	if err := sc.Err(); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrIoRead, path, err)
	}
	return cfg, nil
}

func applyConfigKey(cfg *Config, key, value string) {
	switch key {
	case "variant", "model":
		v := ParseVariant(value)
		cfg.variant = &v
	case "ips", "target_ips":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			cfg.ips = n
		}
	case "max_batch":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			cfg.maxBatch = n
		}
	case "t1_tick":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			cfg.t1Tick = n
		}
	case "t2_tick":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			cfg.t2Tick = n
		}
	case "contrast":
		if n, err := strconv.Atoi(value); err == nil {
			cfg.contrast = n
		}
	default:
		glog.Warningf("saturn: ignoring unrecognized config key %q", key)
	}
}
