package systemd

import "testing"

func TestStartWatchdogWithoutSystemd(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")

	stop := StartWatchdog()
	if stop == nil {
		t.Fatal("expected a stop function")
	}
	stop()
	stop()
}

func TestNotifyOutsideSystemdIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	NotifyReady()
	NotifyStopping()
}
