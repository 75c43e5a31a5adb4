package repository

import "testing"

func TestDeadLetterNames(t *testing.T) {
	dlx, parking := deadLetterNames("container_states_queue")
	if dlx != "container_states_queue.dlx" || parking != "container_states_queue.dead" {
		t.Fatalf("unexpected dead letter names %q %q", dlx, parking)
	}
}
