// Package dialogue implements slot-filling conversations over the catalog.
//
// A Form declares the slots a conversation collects (location, device,
// parameter, action, amount), a validator per raw value and the order in
// which missing slots are asked for. A Machine runs a Form: every turn it
// folds the new input into the accumulated Slots, re-matches the whole set
// and answers with an Outcome:
//
//   - StatusRequest: ask for Outcome.Requested
//   - StatusConfirm: several devices matched where one was expected
//   - StatusResolved: every slot is known; the form can be submitted
//   - StatusFailed: unknown location or nothing matched; see Outcome.Message
//
// The Service ties this together with the conversation store (Sessions), the
// catalog store and the Submitter, which turns a resolved adjust form into
// device commands and a resolved locate form into a spoken report.
//
// Usage:
//
//	svc := dialogue.NewService(store, dialogue.NewSessions(ttl), dialogue.NewSubmitter(engine), opts)
//	conv, _ := svc.Start(ctx, dialogue.FormAdjust, "")
//	reply, _ := svc.Turn(ctx, conv.ID, dialogue.Input{Device: "lamp", Action: "turn off"})
//	fmt.Println(reply.Message())
package dialogue
