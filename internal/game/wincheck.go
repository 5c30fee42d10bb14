package game

// checkWin inspects the state after a committed mutation and terminates the
// match if a win condition holds. Simultaneous lethal on both players is an
// explicit draw: GameEnded carries no winner id.
func checkWin(st *GameState) {
	if st.Over() {
		return
	}

	dead0 := st.Players[0].Health <= 0
	dead1 := st.Players[1].Health <= 0
	if !dead0 && !dead1 {
		return
	}

	st.Phase = PhaseGameOver

	if dead0 && dead1 {
		st.Winner = ""
		st.WinReason = WinDraw
		st.appendEvent(GameEvent{Type: EventGameEnded, WinReason: WinDraw})
		return
	}

	loser := 0
	if dead1 {
		loser = 1
	}
	winner := st.Players[1-loser]
	st.Winner = winner.PlayerID
	st.WinReason = WinOpponentDefeated
	if st.Players[loser].DiedToFatigue {
		st.WinReason = WinOpponentFatigue
	}
	st.appendEvent(GameEvent{
		Type:      EventGameEnded,
		PlayerID:  st.Players[loser].PlayerID,
		Winner:    winner.PlayerID,
		WinReason: st.WinReason,
	})
}
