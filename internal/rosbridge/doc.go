// Package rosbridge is a ROS 2 action client speaking the rosbridge v2 JSON
// protocol over a websocket.
//
// One Client owns one bridge session at a time. A single reader goroutine
// demultiplexes incoming frames by id: service responses go back to the
// pending call, action frames go to the goal they belong to. Writes are
// serialized per session.
//
// Goal lifecycle as seen through the bridge:
//   - send_action_goal is answered by action_feedback frames while the goal is
//     active, then exactly one action_result.
//   - The first frame for a goal settles acceptance. Feedback, or a successful
//     action_result, means the server accepted it. A failed action_result or an
//     error status frame before that means the goal was rejected.
//   - A failed action_result after acceptance surfaces from Result as
//     ErrActionFailed.
//
// Server availability is probed through /rosapi/action_servers. Bridges
// without rosapi answer that call with result=false; a live bridge is then
// taken as availability.
package rosbridge
