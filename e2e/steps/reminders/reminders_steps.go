package reminders

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	SaveNumber(name string, v float64)
	SavedNumber(name string) (float64, bool)
}

// RegisterSteps registers reminder pipeline, inbox and job step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &reminderSteps{tc: tc}

	// Pipeline steps
	ctx.Step(`^I run the reminder pipeline$`, steps.runPipeline)
	ctx.Step(`^I run the "([^"]*)" reminder pass$`, steps.runPass)
	ctx.Step(`^the report should list the passes "([^"]*)"$`, steps.reportListsPasses)
	ctx.Step(`^the pass report should have sent (\d+) reminders$`, steps.passSent)

	// Inbox steps
	ctx.Step(`^I note my unread notification count$`, steps.noteUnread)
	ctx.Step(`^my unread notification count should be unchanged$`, steps.unreadUnchanged)

	// Job steps
	ctx.Step(`^I run the "([^"]*)" job$`, steps.runJob)
	ctx.Step(`^the job list should contain "([^"]*)"$`, steps.jobListed)
}

type reminderSteps struct {
	tc TestContext
}

func (s *reminderSteps) runPipeline(ctx context.Context) error {
	return s.tc.POST("/admin/reminders/run", nil)
}

func (s *reminderSteps) runPass(ctx context.Context, pass string) error {
	return s.tc.POST("/admin/reminders/run?pass="+pass, nil)
}

func (s *reminderSteps) reportListsPasses(ctx context.Context, want string) error {
	raw, err := s.tc.GetResponseField("passes")
	if err != nil {
		return err
	}
	passes, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("passes is not a list: %v", raw)
	}
	got := ""
	for i, p := range passes {
		obj, ok := p.(map[string]interface{})
		if !ok {
			return fmt.Errorf("pass %d is not an object", i)
		}
		if i > 0 {
			got += ","
		}
		got += fmt.Sprint(obj["pass"])
	}
	if got != want {
		return fmt.Errorf("expected passes %q, got %q", want, got)
	}
	return nil
}

func (s *reminderSteps) passSent(ctx context.Context, want int) error {
	raw, err := s.tc.GetResponseField("sent")
	if err != nil {
		return err
	}
	if got, _ := raw.(float64); int(got) != want {
		return fmt.Errorf("expected %d sent, got %v", want, raw)
	}
	return nil
}

func (s *reminderSteps) unread() (float64, error) {
	if err := s.tc.GET("/notifications"); err != nil {
		return 0, err
	}
	raw, err := s.tc.GetResponseField("unread")
	if err != nil {
		return 0, err
	}
	n, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("unread is not a number: %v", raw)
	}
	return n, nil
}

func (s *reminderSteps) noteUnread(ctx context.Context) error {
	n, err := s.unread()
	if err != nil {
		return err
	}
	s.tc.SaveNumber("unread", n)
	return nil
}

func (s *reminderSteps) unreadUnchanged(ctx context.Context) error {
	before, ok := s.tc.SavedNumber("unread")
	if !ok {
		return fmt.Errorf("unread count was never noted")
	}
	after, err := s.unread()
	if err != nil {
		return err
	}
	if after != before {
		return fmt.Errorf("expected %v unread notifications, got %v", before, after)
	}
	return nil
}

func (s *reminderSteps) runJob(ctx context.Context, name string) error {
	return s.tc.POST("/admin/jobs/"+name+"/run", nil)
}

func (s *reminderSteps) jobListed(ctx context.Context, name string) error {
	raw, err := s.tc.GetResponseField("jobs")
	if err != nil {
		return err
	}
	jobs, _ := raw.([]interface{})
	for _, j := range jobs {
		if obj, ok := j.(map[string]interface{}); ok && obj["name"] == name {
			return nil
		}
	}
	return fmt.Errorf("job %q not listed", name)
}
