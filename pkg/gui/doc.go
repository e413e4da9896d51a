// Package gui provides the control bindings a viewer interacts with:
// numeric sliders, checkboxes and momentary buttons, grouped in a Panel.
//
// Every accepted write updates the control's value first and then runs its
// change callbacks synchronously, in registration order. Programmatic writes
// (SetValue, Activate) and interactive writes (Input, Click, Panel.Dispatch)
// share that path; only interactive writes are refused while a control is
// disabled.
package gui
