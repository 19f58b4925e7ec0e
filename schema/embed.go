package schema

import _ "embed"

// CreateV1Schema contains the JSON schema for process creation requests.
//
//go:embed create.v1.json
var CreateV1Schema []byte

// ConfigV1Schema contains the JSON schema for the daemon configuration file.
//
//go:embed config.v1.json
var ConfigV1Schema []byte
