package request

import "testing"

func TestInFlight(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusAccepted, true},
		{StatusRejected, false},
		{StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			r := ClientRequest{Status: tt.status}
			if got := r.InFlight(); got != tt.want {
				t.Errorf("InFlight() with status %s = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"pending to completed", StatusPending, StatusCompleted, false},
		{"accepted to completed", StatusAccepted, StatusCompleted, true},
		{"accepted to rejected", StatusAccepted, StatusRejected, false},
		{"rejected is terminal", StatusRejected, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ClientRequest{Status: tt.from}
			if got := r.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{"valid", CreateRequest{SparkID: "spk_1", ClientID: "u_42"}, false},
		{"valid with message", CreateRequest{SparkID: "spk_1", ClientID: "u_42", Message: "hello"}, false},
		{"missing spark", CreateRequest{ClientID: "u_42"}, true},
		{"missing client", CreateRequest{SparkID: "spk_1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateStatusRequestValidate(t *testing.T) {
	if err := (&UpdateStatusRequest{Status: StatusAccepted}).Validate(); err != nil {
		t.Errorf("Validate(accepted) = %v, want nil", err)
	}
	if err := (&UpdateStatusRequest{Status: "archived"}).Validate(); err == nil {
		t.Error("Validate(archived) = nil, want error")
	}
}
