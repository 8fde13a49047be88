// Package subscription decodes subscription documents into typed proxy node
// descriptors for the ss, trojan and vmess share-link formats.
package subscription

// Protocol identifies a supported share-link protocol.
type Protocol string

const (
	ProtocolSS     Protocol = "ss"
	ProtocolTrojan Protocol = "trojan"
	ProtocolVmess  Protocol = "vmess"
)

// Node is implemented by every node descriptor.
type Node interface {
	Protocol() Protocol
}

// SSNode is a parsed ss:// line.
type SSNode struct {
	Type     Protocol `json:"type" yaml:"type"`
	Server   string   `json:"server" yaml:"server"`
	Port     int      `json:"port" yaml:"port"`
	Method   string   `json:"method" yaml:"method"`
	Password string   `json:"password" yaml:"password"`
	Remark   string   `json:"remark" yaml:"remark"`
	Original string   `json:"original" yaml:"original"`
}

// Protocol implements Node.
func (SSNode) Protocol() Protocol { return ProtocolSS }

// TrojanNode is a parsed trojan:// line.
type TrojanNode struct {
	Type          Protocol `json:"type" yaml:"type"`
	Server        string   `json:"server" yaml:"server"`
	Port          int      `json:"port" yaml:"port"`
	Password      string   `json:"password" yaml:"password"`
	SNI           string   `json:"sni" yaml:"sni"`
	ALPN          string   `json:"alpn" yaml:"alpn"`
	AllowInsecure bool     `json:"allowInsecure" yaml:"allowInsecure"`
	Remark        string   `json:"remark" yaml:"remark"`
	Original      string   `json:"original" yaml:"original"`
}

// Protocol implements Node.
func (TrojanNode) Protocol() Protocol { return ProtocolTrojan }

// VmessNode is a parsed vmess:// line.
type VmessNode struct {
	Type       Protocol `json:"type" yaml:"type"`
	Server     string   `json:"server" yaml:"server"`
	Port       int      `json:"port" yaml:"port"`
	UUID       string   `json:"uuid" yaml:"uuid"`
	AlterID    int      `json:"alterId" yaml:"alterId"`
	Security   string   `json:"security" yaml:"security"`
	Network    string   `json:"network" yaml:"network"`
	HeaderType string   `json:"headerType" yaml:"headerType"`
	Host       string   `json:"host" yaml:"host"`
	Path       string   `json:"path" yaml:"path"`
	TLS        bool     `json:"tls" yaml:"tls"`
	SNI        string   `json:"sni" yaml:"sni"`
	Remark     string   `json:"remark" yaml:"remark"`
	Original   string   `json:"original" yaml:"original"`
}

// Protocol implements Node.
func (VmessNode) Protocol() Protocol { return ProtocolVmess }

// Rejection records a recognized line that could not be parsed.
type Rejection struct {
	Protocol Protocol
	Line     int // 1-based line number in the document
	Raw      string
	Err      error
}

// Result is the outcome of parsing one document. Each list keeps input order.
type Result struct {
	SS     []SSNode     `json:"ss" yaml:"ss"`
	Trojan []TrojanNode `json:"trojan" yaml:"trojan"`
	Vmess  []VmessNode  `json:"vmess" yaml:"vmess"`
	Total  int          `json:"total" yaml:"total"`

	Rejected []Rejection `json:"-" yaml:"-"`
}

// Summary holds per-protocol counts.
type Summary struct {
	SS       int `json:"ss" yaml:"ss"`
	Trojan   int `json:"trojan" yaml:"trojan"`
	Vmess    int `json:"vmess" yaml:"vmess"`
	Total    int `json:"total" yaml:"total"`
	Rejected int `json:"rejected" yaml:"rejected"`
}

// Summary returns the counts for r.
func (r *Result) Summary() Summary {
	return Summary{
		SS:       len(r.SS),
		Trojan:   len(r.Trojan),
		Vmess:    len(r.Vmess),
		Total:    r.Total,
		Rejected: len(r.Rejected),
	}
}

func newResult() *Result {
	return &Result{
		SS:     []SSNode{},
		Trojan: []TrojanNode{},
		Vmess:  []VmessNode{},
	}
}

func (r *Result) add(n Node) {
	switch v := n.(type) {
	case SSNode:
		r.SS = append(r.SS, v)
	case TrojanNode:
		r.Trojan = append(r.Trojan, v)
	case VmessNode:
		r.Vmess = append(r.Vmess, v)
	default:
		return
	}
	r.Total++
}
