package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# docship configuration
site:
  title: "Project Documentation"
  docs_dir: ./docs
  base_url: /

output:
  directory: ./public
  clean: true

requirements:
  dir: ./dev-requirements
  index: ./dev-requirements/versions.yaml

emoji:
  mapping: ./assets/emoji_mapping.json
  assets_dir: ./assets/emoji

matrix:
  file: ./ci.yaml
  max_parallel: 4

deploy:
  repository: example-org/example-pages
  branch: docs
  workflow: publish.yml

# daemon:
#   interval: 1h
#   listen_addr: ":9180"

# events:
#   enabled: true
#   url: nats://127.0.0.1:4222
#   subject: docship.runs
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
