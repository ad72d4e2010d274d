package utils

import (
	"testing"
	"time"
)

func TestParseISO(t *testing.T) {
	got, err := ParseISO("2024-03-10T12:00:00-03:00")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC); !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("got %v", got)
	}

	naive, err := ParseISO("2024-03-10T12:00:00")
	if err != nil {
		t.Fatal(err)
	}
	if naive.Hour() != 12 || naive.Location() != time.UTC {
		t.Fatalf("zone-less value should be UTC, got %v", naive)
	}

	if _, err := ParseISO("10/03/2024"); err != ErrInvalidDate {
		t.Fatalf("err = %v", err)
	}
}

func TestParseDataFlex(t *testing.T) {
	br, err := ParseDataFlex("05/01/1990")
	if err != nil {
		t.Fatal(err)
	}
	if br.Day() != 5 || br.Month() != time.January || br.Year() != 1990 {
		t.Fatalf("got %v", br)
	}
	iso, err := ParseDataFlex("1990-01-05")
	if err != nil || !iso.Equal(br) {
		t.Fatalf("iso = %v, err = %v", iso, err)
	}
	if _, err := ParseDataFlex("31/02/1990"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAge(t *testing.T) {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := Age(birth, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)); got != 33 {
		t.Fatalf("day before birthday: %d", got)
	}
	if got := Age(birth, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)); got != 34 {
		t.Fatalf("birthday: %d", got)
	}
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2024, 3, 10, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600)))
	if !start.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)) || end.Sub(start) != 24*time.Hour {
		t.Fatalf("got [%v, %v)", start, end)
	}
}
