package bot

import (
	"errors"
	"testing"
)

func TestParseSelect(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    SelectPayload
		wantErr bool
	}{
		{"valid", "att_s:2026-03-10:2:5", SelectPayload{Date: "2026-03-10", Index: 2, Mask: 5}, false},
		{"zero index empty mask", "att_s:2026-03-10:0:0", SelectPayload{Date: "2026-03-10", Index: 0, Mask: 0}, false},
		{"wrong action", "att_c:2026-03-10:2:5", SelectPayload{}, true},
		{"missing field", "att_s:2026-03-10:2", SelectPayload{}, true},
		{"bad date", "att_s:10-03-2026:2:5", SelectPayload{}, true},
		{"non-numeric index", "att_s:2026-03-10:x:5", SelectPayload{}, true},
		{"negative index", "att_s:2026-03-10:-1:5", SelectPayload{}, true},
		{"index above cap", "att_s:2026-03-10:32:5", SelectPayload{}, true},
		{"negative mask", "att_s:2026-03-10:2:-5", SelectPayload{}, true},
		{"empty", "", SelectPayload{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelect(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("err = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseConfirm(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    ConfirmPayload
		wantErr bool
	}{
		{"attend", "att_c:2026-03-10:attend:7", ConfirmPayload{Date: "2026-03-10", Kind: "attend", Mask: 7}, false},
		{"absent", "att_c:2026-03-10:absent:1", ConfirmPayload{Date: "2026-03-10", Kind: "absent", Mask: 1}, false},
		{"bad kind", "att_c:2026-03-10:delete:7", ConfirmPayload{}, true},
		{"bad mask", "att_c:2026-03-10:attend:x", ConfirmPayload{}, true},
		{"wrong action", "att_s:2026-03-10:attend:7", ConfirmPayload{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfirm(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPayload) {
					t.Fatalf("err = %v, want ErrInvalidPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAll(t *testing.T) {
	action, date, err := ParseAll("att_a_all:2026-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if action != ActionAttendAll || date != "2026-03-10" {
		t.Errorf("got %q %q", action, date)
	}

	action, _, err = ParseAll("att_abs_all:2026-03-10")
	if err != nil || action != ActionAbsentAll {
		t.Errorf("absent-all: action=%q err=%v", action, err)
	}

	for _, bad := range []string{"att_a_all", "att_s:2026-03-10", "att_a_all:today"} {
		if _, _, err := ParseAll(bad); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("ParseAll(%q) err = %v, want ErrInvalidPayload", bad, err)
		}
	}
}
