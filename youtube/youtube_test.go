package youtube

import "testing"

func TestParseVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/live/dQw4w9WgXcQ?feature=share", "dQw4w9WgXcQ", true},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://vimeo.com/123456", "", false},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"https://www.youtube.com/channel/UC123", "", false},
		{"ftp://youtube.com/watch?v=dQw4w9WgXcQ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseVideoID(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Errorf("ParseVideoID(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("ParseVideoID(%q) = %q; want error", tc.in, got)
		}
	}
}

func TestEmbedURL(t *testing.T) {
	got := EmbedURL("dQw4w9WgXcQ", 3, 33)
	want := "https://www.youtube.com/embed/dQw4w9WgXcQ?enablejsapi=1&end=33&start=3"
	if got != want {
		t.Fatalf("EmbedURL = %q; want %q", got, want)
	}
	if got := EmbedURL("dQw4w9WgXcQ", 0, 0); got != "https://www.youtube.com/embed/dQw4w9WgXcQ?enablejsapi=1" {
		t.Fatalf("open-ended EmbedURL = %q", got)
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("dQw4w9WgXcQ", 0); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("WatchURL = %q", got)
	}
	if got := WatchURL("dQw4w9WgXcQ", 12); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=12s" {
		t.Fatalf("WatchURL with start = %q", got)
	}
}
