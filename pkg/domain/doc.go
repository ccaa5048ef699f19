/*
Package domain contains the core models shared by the script contexts, the render
delegate and the host.

It is kept free of I/O and persistence so that every other package can depend on it.

# Key Entities

  - HostState: the host-controlled parameter snapshot delivered on every state change.
  - NodeRef: the identity record of one node in the native signal graph.
  - GraphNode: the opaque graph description returned by the external graph factory.
  - InboundMessage / OutboundCommand: the two directions of the host bridge.
  - Value: a sealed tagged union for arbitrary host-supplied data.
*/
package domain
