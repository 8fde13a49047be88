package subscription

import (
	"net/url"
	"strings"
)

const trojanScheme = "trojan://"

// ParseTrojan parses one trimmed trojan:// line of the form
// trojan://password@server:port?query#remark. The password is used verbatim.
func ParseTrojan(line string) (TrojanNode, error) {
	main, remark := splitRemark(strings.TrimPrefix(line, trojanScheme))

	password, rest, ok := strings.Cut(main, "@")
	if !ok || password == "" || rest == "" {
		return TrojanNode{}, ErrMissingAt
	}
	authority, rawQuery, _ := strings.Cut(rest, "?")
	server, portText := splitHostPort(authority)
	query := parseQuery(rawQuery)

	switch {
	case server == "":
		return TrojanNode{}, missing("server")
	case portText == "":
		return TrojanNode{}, missing("port")
	}
	port, err := parsePort(portText)
	if err != nil {
		return TrojanNode{}, err
	}

	insecure := query["allowInsecure"]
	return TrojanNode{
		Type:          ProtocolTrojan,
		Server:        server,
		Port:          port,
		Password:      password,
		SNI:           firstNonEmpty(query["sni"], query["peer"], server),
		ALPN:          query["alpn"],
		AllowInsecure: insecure == "1" || insecure == "true",
		Remark:        remark,
		Original:      line,
	}, nil
}

// parseQuery splits raw on '&' into key=value pairs. The last occurrence of
// a key wins. Components that fail to unescape keep their raw text.
func parseQuery(raw string) map[string]string {
	params := make(map[string]string)
	if raw == "" {
		return params
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[unescapeQuery(key)] = unescapeQuery(value)
	}
	return params
}

func unescapeQuery(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
