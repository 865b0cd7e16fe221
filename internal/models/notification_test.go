package models

import "testing"

func TestProject_NotificationMessage(t *testing.T) {
	eventID := uint(3)
	withEvent := Project{Title: "Bike Map", EventID: &eventID, Event: &Event{ID: 3, Title: "Civic Hack Night"}}
	backlog := Project{Title: "Bike Map"}

	got := withEvent.NotificationMessage("http://a.example.com/projects/1-bike-map")
	want := "A new project Bike Map has been submitted for Civic Hack Night. http://a.example.com/projects/1-bike-map"
	if got != want {
		t.Errorf("NotificationMessage() = %q, expected %q", got, want)
	}

	got = backlog.NotificationMessage("http://x")
	want = "A new project Bike Map has been submitted to the backlog. http://x"
	if got != want {
		t.Errorf("NotificationMessage() = %q, expected %q", got, want)
	}
}

func TestProjectRating_NotificationMessage(t *testing.T) {
	eventID := uint(1)
	project := &Project{Title: "Bike Map", EventID: &eventID, Event: &Event{ID: 1}}
	rating := ProjectRating{Project: project, User: &User{Name: "Ada"}}

	if got := rating.NotificationMessage("http://u"); got != "Ada liked project Bike Map: http://u" {
		t.Errorf("NotificationMessage() = %q", got)
	}

	project.Event.AnonymousSocial = true
	if got := rating.NotificationMessage("http://u"); got != "Somebody liked project Bike Map: http://u" {
		t.Errorf("anonymous NotificationMessage() = %q", got)
	}

	backlogRating := ProjectRating{Project: &Project{Title: "Idea"}, User: &User{Name: "Lin"}}
	if got := backlogRating.NotificationMessage("http://u"); got != "Lin liked project Idea: http://u" {
		t.Errorf("backlog NotificationMessage() = %q", got)
	}
}
