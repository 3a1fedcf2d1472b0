// Package plugin runs Lua extension scripts against the event registry.
//
// A script subscribes through the events module:
//
//	events.on("Healing", function(ev)
//	    if ev.Player.health > 80 then
//	        ev:deny()
//	    end
//	end, { priority = "High" })
//
//	events.on("GameOpened", function()
//	    print("game opened")
//	end)
//
// The payload is a table of its exported fields; host objects are tables of
// their fields. Integer, boolean and string fields changed by the handler are
// written back to the payload after the call. Deniable payloads also carry
// deny(), hard_deny(), allowed() and set_allowed(b).
//
// Options:
//   - priority: a number in [0, 1000] or a priority name
//   - run_when_denied: run after the payload was denied
//   - observer: subscribe as an observer; the handler gets no payload
//
// events.on returns a handler id accepted by events.off. Every script gets a
// unique receiver identity, so Unload removes exactly the handlers the script
// added. A Lua error inside a handler is recovered by the dispatcher and
// logged as a handler fault; dispatch continues.
//
// Scripts are discovered as single files (name.lua) or directories with an
// init.lua entry point.
package plugin
