// internal/chat/colors.go
package chat

// userColors is the fixed palette assigned to chatters that never set
// a color on Twitch.
var userColors = []string{
	"#FF69B4", // pink
	"#00BFFF", // deep sky blue
	"#ADFF2F", // green yellow
	"#FFD700", // gold
	"#FF4500", // orange red
	"#9370DB", // medium purple
}

// ColorFor deterministically maps a display name to a palette color
// using a 32-bit polynomial rolling hash. Same name, same color.
func ColorFor(name string) string {
	var hash int32
	for _, c := range []byte(name) {
		hash = int32(c) + (hash<<5 - hash)
	}
	idx := hash % int32(len(userColors))
	if idx < 0 {
		idx = -idx
	}
	return userColors[idx]
}
