// Package hostwindow renders the UI-confirmation step in a small Tk
// window, adapted from dbgwnd's debug window: same dot-imported
// modernc.org/tk9.0 widget API and goforj/godump for pretty-printing
// structured state, scaled down from a full connection-debug panel to a
// single config-review-and-confirm dialog.
package hostwindow

import (
	"fmt"

	"github.com/goforj/godump"
	tk9_0 "modernc.org/tk9.0"
	_ "modernc.org/tk9.0/themes/azure"

	"netplay-adapter/protocol"
	"netplay-adapter/session/uibridge"
)

// Window implements uibridge.Surface with a Tk dialog showing the
// negotiated config and Accept/Decline buttons.
type Window struct {
	bridge   *uibridge.Bridge
	frame    *tk9_0.TFrameWidget
	infoView *tk9_0.TextWidget
	status   *tk9_0.TLabelWidget
}

// New builds the window but does not enter the Tk event loop; call Run
// from the goroutine that owns the UI thread once the bridge has been
// wired to a Controller.
func New() *Window {
	tk9_0.App.WmTitle("Netplay Session")

	w := &Window{}
	w.frame = tk9_0.TFrame()
	w.infoView = w.frame.Text(tk9_0.Height(12), tk9_0.Width(50))
	w.status = w.frame.TLabel(tk9_0.Txt("Waiting for peer..."))

	acceptBtn := w.frame.TButton(tk9_0.Txt("Accept"), tk9_0.Command(func() { w.onAccept() }))
	declineBtn := w.frame.TButton(tk9_0.Txt("Decline"), tk9_0.Command(func() { w.onDecline() }))

	tk9_0.Grid(w.status, tk9_0.Row(0), tk9_0.Column(0), tk9_0.Columnspan(2), tk9_0.Sticky("W"))
	tk9_0.Grid(w.infoView, tk9_0.Row(1), tk9_0.Column(0), tk9_0.Columnspan(2), tk9_0.Sticky("NSWE"))
	tk9_0.Grid(acceptBtn, tk9_0.Row(2), tk9_0.Column(0), tk9_0.Sticky("WE"))
	tk9_0.Grid(declineBtn, tk9_0.Row(2), tk9_0.Column(1), tk9_0.Sticky("WE"))

	tk9_0.Bind(tk9_0.App, "<Escape>", tk9_0.Command(func() { w.onDecline() }))

	return w
}

// Bind attaches this window to a bridge; the session controller will
// Wait() on the same bridge from its own goroutine.
func (w *Window) Bind(bridge *uibridge.Bridge) {
	w.bridge = bridge
}

func (w *Window) onAccept() {
	if w.bridge != nil {
		w.bridge.Confirm()
	}
}

func (w *Window) onDecline() {
	if w.bridge != nil {
		w.bridge.Reject()
	}
}

// ShowConfig implements uibridge.Surface.
func (w *Window) ShowConfig(cfg protocol.NetplayConfig) {
	w.infoView.Insert("end", fmt.Sprintf("%s\n", godump.DumpStr(cfg)))
}

// ShowState implements uibridge.Surface.
func (w *Window) ShowState(status string) {
	w.status.Configure(tk9_0.Txt(status))
}

// Run enters the Tk event loop; it blocks until the window is closed.
func (w *Window) Run() {
	tk9_0.App.Wait()
}

// Close implements uibridge.Surface.
func (w *Window) Close() {
	tk9_0.Destroy(tk9_0.App)
}
