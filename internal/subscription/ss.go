package subscription

import (
	"fmt"
	"strings"
)

const ssScheme = "ss://"

// ParseSS parses one trimmed ss:// line of the form
// ss://base64(method:password)@server:port#remark.
func ParseSS(line string) (SSNode, error) {
	main, remark := splitRemark(strings.TrimPrefix(line, ssScheme))

	userinfo, hostport, ok := strings.Cut(main, "@")
	if !ok || userinfo == "" || hostport == "" {
		return SSNode{}, ErrMissingAt
	}
	server, portText := splitHostPort(hostport)

	auth, err := DecodeBase64Text(userinfo)
	if err != nil {
		return SSNode{}, fmt.Errorf("ss userinfo: %w", err)
	}
	method, password, _ := strings.Cut(auth, ":")

	switch {
	case method == "":
		return SSNode{}, missing("method")
	case password == "":
		return SSNode{}, missing("password")
	case server == "":
		return SSNode{}, missing("server")
	case portText == "":
		return SSNode{}, missing("port")
	}
	port, err := parsePort(portText)
	if err != nil {
		return SSNode{}, err
	}

	return SSNode{
		Type:     ProtocolSS,
		Server:   server,
		Port:     port,
		Method:   method,
		Password: password,
		Remark:   remark,
		Original: line,
	}, nil
}
