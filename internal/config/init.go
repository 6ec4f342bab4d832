package config

import (
	"fmt"
	"os"
)

// defaultConfigTemplate encodes the standard desktop build chain: install and
// bundle the web frontend, freeze the backend into a standalone executable
// (retried, PyInstaller occasionally loses a file-lock race on Windows),
// flatten the frozen output, generate icons, and package the installer.
const defaultConfigTemplate = `# distbuilder pipeline definition.
# Stages run strictly in declared order; the first unrecoverable failure
# halts the run.

log_dir: .distbuilder/runs
history_db: .distbuilder/history.db

# Dotenv files loaded before the run. Put signing credentials here; real
# environment variables always take precedence.
env_files:
  - .env
  - .env.local

retry:
  backoff: fixed
  max_delay: 30s

watch:
  paths:
    - frontend/src
    - backend
  debounce: 2s

stages:
  - name: backend-deps
    dir: backend
    prepare:
      marker: backend/venv
      dir: backend
      commands:
        - python3 -m venv venv
    commands:
      - venv/bin/pip install -r requirements.txt

  - name: frontend-deps
    dir: frontend
    commands:
      - npm ci

  - name: frontend-build
    dir: frontend
    commands:
      - npm run build

  - name: backend-freeze
    dir: backend
    commands:
      - venv/bin/pyinstaller --noconfirm main_entry.spec
    max_attempts: 3
    retry_delay: 5s
    cleanup_on_retry:
      - backend/build
      - backend/dist
    artifact:
      search_root: backend/dist
      match_name: main_entry
      exclude:
        - _internal
        - __pycache__
      destination: build/backend
      required: true

  - name: icons
    dir: electron
    commands:
      - npm ci
      - npm run icons

  - name: package
    dir: electron
    env:
      CSC_IDENTITY_AUTO_DISCOVERY: "false"
    commands:
      - npx electron-builder --mac
    artifact:
      search_root: electron/dist
      match_name: "*.dmg"
      exclude:
        - mac-arm64
      destination: dist
`

// Init writes the default configuration file. Refuses to overwrite unless
// force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
