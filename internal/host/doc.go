// Package host models the closed application being retrofitted.
//
// An Image holds host types and their methods. Method bodies are il
// instruction lists, usually assembled from a YAML image description:
//
//	types:
//	  - name: PlayerController
//	    fields: [health, criticallyInjured]
//	    methods:
//	      - name: MakeCriticallyInjured
//	        params: [{name: enable, type: bool}]
//	        body: |
//	          ldarg 1
//	          brfalse L0
//	          ldarg 0
//	          ldc.bool true
//	          stfld criticallyInjured
//	          L0: ret
//
// Calls to Go code go through a Natives table bound at load time
// ("call native:Name"). The Interpreter executes bodies on an operand stack.
// An Interpreter is not safe for concurrent use; create one per goroutine.
package host
