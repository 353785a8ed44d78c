package configparser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/drone/envsubst"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadAndParseYaml loads an optional .env file and the YAML file into the
// environment, then fills cfg from `env` struct tags. A missing YAML file is
// not an error: defaults and the process environment still apply.
func LoadAndParseYaml(filepath string, cfg any) error {
	if err := LoadDotEnv(".env"); err != nil {
		return err
	}

	if err := LoadYamlFile(filepath); err != nil && !errors.Is(err, ErrNoFilePath) && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return Parse(cfg)
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not load %s: %w", path, err)
	}
	return nil
}

// LoadYamlFile reads a YAML file, expands ${VAR:-default} references and
// exports every scalar as an upper snake case variable built from its path
// (rabbitmq.retry_delay becomes RABBITMQ_RETRY_DELAY). Variables that are
// already set win over the file.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	raw, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	vars, err := Flatten(raw)
	if err != nil {
		return err
	}

	for key, value := range vars {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}
	return nil
}

// Flatten expands environment references in a YAML document and returns its
// scalars keyed by upper snake case path.
func Flatten(raw []byte) (map[string]string, error) {
	expanded, err := envsubst.EvalEnv(string(raw))
	if err != nil {
		return nil, fmt.Errorf("could not substitute env in YAML: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := envName(k)
		if prefix != "" {
			name = prefix + "_" + name
		}

		switch v := node[k].(type) {
		case map[string]any:
			flatten(name, v, out)
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprint(item))
			}
			out[name] = strings.Join(items, ",")
		case nil:
		default:
			out[name] = fmt.Sprint(v)
		}
	}
}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(key))
}
