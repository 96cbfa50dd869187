package main

// Log messages
const (
	LogMsgAgentReady       = "Agent ready"
	LogMsgABIsUnavailable  = "ABIs unavailable, reverts will not be decoded"
	LogMsgNamesUnavailable = "Item names unavailable, using numeric ids"
	LogMsgRecipesLoaded    = "Offline recipe fixture loaded"
	LogMsgDuplicateRecipes = "Duplicate recipe outputs, first recipe kept"
	LogMsgFarmStarted      = "Farming lands"
)
