package featureflag

type Flag string

const (
	// Runs every batch query on a single goroutine.
	FlagSerialQueries Flag = "SERIAL_QUERIES"

	// Disables the WebSocket query endpoint.
	FlagDisableWebSocket Flag = "DISABLE_WEBSOCKET"

	// Refuses intersect_faces queries.
	FlagDisableFaceIntersection Flag = "DISABLE_FACE_INTERSECTION"
)
