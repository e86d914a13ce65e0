package lookup

import "github.com/PortalNetworkOfficial/core/enr"

func decodeEnr(raw []byte) (*enr.Record, error) {
	return enr.Decode(raw)
}
