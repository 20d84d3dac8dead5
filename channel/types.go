package channel

import "github.com/arloliu/go-iotlink/transport"

type typeDirection struct {
	dataType  transport.DataType
	direction transport.Direction
}

// supportedTypes is the fixed data type table of the operations TCP channel.
var supportedTypes = [...]typeDirection{
	{transport.Profile, transport.Bidirectional},
	{transport.Configuration, transport.Bidirectional},
	{transport.Notification, transport.Bidirectional},
	{transport.User, transport.Bidirectional},
	{transport.Event, transport.Bidirectional},
	{transport.Logging, transport.Bidirectional},
}

// configuredDirections returns a fresh map of every supported type to its configured direction.
func configuredDirections() map[transport.DataType]transport.Direction {
	dirs := make(map[transport.DataType]transport.Direction, len(supportedTypes))
	for _, td := range supportedTypes {
		dirs[td.dataType] = td.direction
	}

	return dirs
}

func configuredDirection(t transport.DataType) (transport.Direction, bool) {
	for _, td := range supportedTypes {
		if td.dataType == t {
			return td.direction, true
		}
	}

	return transport.Down, false
}

// syncDirections returns the direction map of a sync limited to types.
//
// Requested types keep their configured direction, every other supported type is set to
// Down. Requested types the channel doesn't support are returned in unsupported and take
// no part in the map. matched reports whether at least one requested type is supported.
func syncDirections(types []transport.DataType) (dirs map[transport.DataType]transport.Direction, matched bool, unsupported []transport.DataType) {
	dirs = make(map[transport.DataType]transport.Direction, len(supportedTypes))
	for _, td := range supportedTypes {
		dirs[td.dataType] = transport.Down
	}

	for _, t := range types {
		dir, ok := configuredDirection(t)
		if !ok {
			unsupported = append(unsupported, t)
			continue
		}
		dirs[t] = dir
		matched = true
	}

	return dirs, matched, unsupported
}
