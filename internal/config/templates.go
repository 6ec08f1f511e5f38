package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "replay":
		return replayTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `name = "gridlink"

[peer]
network = "unix"
address = "/tmp/nvim.sock"
connect_timeout = "5s"
max_connect_attempts = 5

[ui]
width = 120
height = 40
ext_multigrid = true
ext_messages = false
ext_hlstate = true
ext_termcolors = false

[rpc]
request_timeout = "0s"
write_timeout = "15s"

[inspect]
enabled = false
addr = "127.0.0.1:9400"
cors_origins = ["http://localhost:3000"]
token = ""

[render]
target = "terminal"

[log]
level = "info"
file = ""
`

const replayTemplate = `input = "capture.msgpack"
width = 80
height = 24
max_bytes = 67108864
print_grids = true
`
