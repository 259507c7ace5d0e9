package accumulate

import "github.com/pkg/errors"

func init() {
	MainNetParams.Name = NetworkMainNet
	MainNetParams.Endpoint = "https://mainnet.accumulatenetwork.io/v3"

	KermitParams.Name = NetworkKermit
	KermitParams.Endpoint = "https://kermit.accumulatenetwork.io/v3"

	FozzieParams.Name = NetworkFozzie
	FozzieParams.Endpoint = "https://fozzie.accumulatenetwork.io/v3"

	LocalParams.Name = NetworkLocal
	LocalParams.Endpoint = "http://127.0.1.1:26660/v3"
}

type NetworkParams struct {
	Name     Network
	Endpoint string
}

var MainNetParams = NetworkParams{}
var KermitParams = NetworkParams{}
var FozzieParams = NetworkParams{}
var LocalParams = NetworkParams{}

const (
	NetworkMainNet Network = "mainnet"
	NetworkKermit  Network = "kermit"
	NetworkFozzie  Network = "fozzie"
	NetworkLocal   Network = "local"
)

type Network string

func (n Network) Valid() bool {
	return n == NetworkMainNet || n == NetworkKermit || n == NetworkFozzie || n == NetworkLocal
}

func (n Network) Validate() (err error) {
	if !n.Valid() {
		err = errors.Errorf("invalid network: '%s'", n)
	}
	return
}

func (n Network) Params() (params *NetworkParams, err error) {
	if err = n.Validate(); err != nil {
		return
	}

	switch n {
	case NetworkMainNet:
		return &MainNetParams, nil
	case NetworkKermit:
		return &KermitParams, nil
	case NetworkFozzie:
		return &FozzieParams, nil
	case NetworkLocal:
		return &LocalParams, nil
	}

	return
}
