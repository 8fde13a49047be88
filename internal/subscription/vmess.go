package subscription

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const vmessScheme = "vmess://"

// ParseVmess parses one trimmed vmess:// line whose payload is base64
// encoded JSON in the v2rayN share format.
func ParseVmess(line string) (VmessNode, error) {
	payload, err := DecodeBase64Text(strings.TrimPrefix(line, vmessScheme))
	if err != nil {
		return VmessNode{}, fmt.Errorf("vmess payload: %w", err)
	}

	var v map[string]any
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return VmessNode{}, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return VmessNode{}, fmt.Errorf("%w: trailing data after object", ErrJSON)
	}
	if v == nil {
		return VmessNode{}, fmt.Errorf("%w: not an object", ErrJSON)
	}

	// Objects and arrays are truthy but have no text form.
	server, uuid := getString(v, "add"), getString(v, "id")
	switch {
	case !truthy(v["add"]) || server == "":
		return VmessNode{}, missing("add")
	case !truthy(v["port"]):
		return VmessNode{}, missing("port")
	case !truthy(v["id"]) || uuid == "":
		return VmessNode{}, missing("id")
	}
	port, err := parsePort(getString(v, "port"))
	if err != nil {
		return VmessNode{}, err
	}

	alterID := 0
	if aid := getString(v, "aid"); aid != "" {
		if n, err := parsePort(aid); err == nil {
			alterID = n
		}
	}
	tls := getString(v, "tls")

	return VmessNode{
		Type:       ProtocolVmess,
		Server:     server,
		Port:       port,
		UUID:       uuid,
		AlterID:    alterID,
		Security:   firstNonEmpty(getString(v, "scy"), "auto"),
		Network:    firstNonEmpty(getString(v, "net"), "tcp"),
		HeaderType: firstNonEmpty(getString(v, "type"), "none"),
		Host:       getString(v, "host"),
		Path:       getString(v, "path"),
		TLS:        tls == "tls" || tls == "1",
		SNI:        getString(v, "sni"),
		Remark:     getString(v, "ps"),
		Original:   line,
	}, nil
}

// truthy reports whether a decoded JSON value counts as present: not null,
// not "", not zero and not false.
func truthy(value any) bool {
	switch t := value.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// getString returns the value at key as text. Numbers keep their literal
// form; objects, arrays and null give "". False gives "" so that falsy
// values fall through to defaults.
func getString(m map[string]any, key string) string {
	switch t := m[key].(type) {
	case string:
		return t
	case json.Number:
		if !truthy(t) {
			return ""
		}
		return t.String()
	case bool:
		if t {
			return strconv.FormatBool(t)
		}
	}
	return ""
}
